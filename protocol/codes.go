// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.astrophena.name/ramses/syncx"
)

// Code is a four hex digit command code, e.g. "30C9".
type Code string

// Verb is the two-character verb of a frame. Note the leading space of
// [I] and [W].
type Verb string

// Verbs.
const (
	I  Verb = " I"
	RQ Verb = "RQ"
	RP Verb = "RP"
	W  Verb = " W"
)

// Valid reports whether v is one of the four verbs.
func (v Verb) Valid() bool {
	switch v {
	case I, RQ, RP, W:
		return true
	}
	return false
}

// Short returns v without padding.
func (v Verb) Short() string { return strings.TrimSpace(string(v)) }

// Never is the lifespan of codes whose state never expires.
const Never time.Duration = -1

type codeSchema struct {
	Name         string
	I, RQ, RP, W string
	Expires      time.Duration
}

func (s codeSchema) regex(v Verb) string {
	switch v {
	case I:
		return s.I
	case RQ:
		return s.RQ
	case RP:
		return s.RP
	case W:
		return s.W
	}
	return ""
}

func codeSet(codes ...Code) map[Code]bool {
	m := make(map[Code]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// Name returns the name of the code, e.g. "temperature" for 30C9.
func (c Code) Name() string {
	if s, ok := codeSchemas[c]; ok {
		return s.Name
	}
	return "unknown_" + strings.ToLower(string(c))
}

// Known reports whether c is described in the code schema.
func (c Code) Known() bool {
	_, ok := codeSchemas[c]
	return ok
}

// Codes returns every code of the schema, in order.
func Codes() []Code { return slices.Sorted(maps.Keys(codeSchemas)) }

// Lifespan returns how long the state carried by c stays current. It returns
// 0 if the code has no lifespan and [Never] if it never expires.
func (c Code) Lifespan() time.Duration { return codeSchemas[c].Expires }

// HeatOnly reports whether c is only used by heating (CH/DHW) devices.
func (c Code) HeatOnly() bool { return codesHeatOnly[c] }

// HVACOnly reports whether c is only used by ventilation devices.
func (c Code) HVACOnly() bool { return codesHVACOnly[c] }

type verbCode struct {
	verb Verb
	code Code
}

var payloadRegexps syncx.Lazy[map[verbCode]*regexp.Regexp]

func compileRegexps() map[verbCode]*regexp.Regexp {
	m := make(map[verbCode]*regexp.Regexp)
	for code, s := range codeSchemas {
		for _, v := range []Verb{I, RQ, RP, W} {
			if re := s.regex(v); re != "" {
				m[verbCode{v, code}] = regexp.MustCompile(re)
			}
		}
	}
	return m
}

// ValidPayload reports whether payload matches the schema of the verb/code
// pair. Pairs the schema does not describe are not checked.
func ValidPayload(verb Verb, code Code, payload string) bool {
	re, ok := payloadRegexps.Get(compileRegexps)[verbCode{verb, code}]
	if !ok {
		return true
	}
	return re.MatchString(payload)
}

// HasVerb reports whether the schema of code describes verb.
func HasVerb(code Code, verb Verb) bool {
	return codeSchemas[code].regex(verb) != ""
}

// Class is the slug of a device class, e.g. "CTL".
type Class string

// Device classes.
const (
	CTL Class = "CTL" // controller
	UFC Class = "UFC" // underfloor heating controller
	THM Class = "THM" // thermostat
	TRV Class = "TRV" // radiator valve
	DHW Class = "DHW" // cylinder sensor
	OTB Class = "OTB" // OpenTherm bridge
	BDR Class = "BDR" // relay
	OUT Class = "OUT" // outdoor sensor
	HGI Class = "HGI" // gateway interface
	RFG Class = "RFG" // internet gateway
	PRG Class = "PRG" // programmer
	JIM Class = "JIM"
	JST Class = "JST"
	DTS Class = "DTS"
	DT2 Class = "DT2"
	NUL Class = "NUL"

	FAN Class = "FAN" // ventilation unit
	RFS Class = "RFS"
	CO2 Class = "CO2"
	HUM Class = "HUM"
	REM Class = "REM" // remote switch
	DIS Class = "DIS" // display

	HEA Class = "HEA" // an unknown heat device
	HVC Class = "HVC" // an unknown HVAC device
	DEV Class = "DEV" // an unknown device
)

// IsHVAC reports whether k is a ventilation class.
func (k Class) IsHVAC() bool {
	switch k {
	case FAN, RFS, CO2, HUM, REM, DIS, HVC:
		return true
	}
	return false
}

// Known reports whether the code tables describe what k may transmit.
func (k Class) Known() bool {
	_, ok := codesByClass[k]
	return ok
}

// Transmits reports whether devices of class k send verb/code. The second
// result is false if k does not send code at all.
func (k Class) Transmits(code Code, verb Verb) (verbOK, codeOK bool) {
	verbs, ok := codesByClass[k][code]
	if !ok {
		return false, false
	}
	for _, v := range verbs {
		if v == verb {
			return true, true
		}
	}
	return false, true
}

// Fakeable reports whether devices of class k may be faked.
func (k Class) Fakeable() bool {
	switch k {
	case THM, DHW, OUT, CO2, HUM, REM:
		return true
	}
	return false
}

// ClassForPair returns the HVAC class announced by a verb/code pair, e.g. FAN
// for " I 31DA".
func ClassForPair(verb Verb, code Code) (Class, bool) {
	k, ok := hvacClassByPair[verbCode{verb, code}]
	return k, ok
}

var hvacClassByPair = map[verbCode]Class{
	{I, "1298"}:  CO2,
	{I, "31D9"}:  FAN,
	{I, "31DA"}:  FAN,
	{RP, "31DA"}: FAN,
	{I, "12A0"}:  HUM,
	{I, "22F1"}:  REM,
	{I, "22F3"}:  REM,
}

// arraySpec describes codes whose " I" payloads may be arrays.
type arraySpec struct {
	elemLen  int
	srcTypes []string
}

var codesWithArrays = map[Code]arraySpec{
	"0005": {4, []string{"34"}},
	"0009": {3, []string{"01", "12", "22"}},
	"000A": {6, []string{"01", "12", "22"}},
	"2309": {3, []string{"01", "12", "22"}},
	"30C9": {3, []string{"01", "12", "22"}},
	"2249": {7, []string{"23"}},
	"22C9": {6, []string{"02"}},
	"3150": {2, []string{"02"}},
}
