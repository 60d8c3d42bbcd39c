// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import "time"

// codeSchemas holds the payload regexes of every known code, per verb.
var codeSchemas = map[Code]codeSchema{
	"0001": {Name: "rf_unknown", I: `^00FFFF02(00|FF)$`, RQ: `^00([28A]0)00(0[0-9A-F])(FF|04)$`, RP: `^00([28A]0)00(0[0-9A-F])`, W: `^(0[0-9A-F]|FC|FF)000005(01|05)$`},
	"0002": {Name: "outdoor_sensor", I: `^0[0-4][0-9A-F]{4}(00|01|02|05)$`, RQ: `^00$`, RP: `^0[0-4][0-9A-F]{4}(00|01|02|05)$`},
	"0004": {Name: "zone_name", I: `^0[0-9A-F]00([0-9A-F]){40}$`, RQ: `^0[0-9A-F]00$`, RP: `^0[0-9A-F]00([0-9A-F]){40}$`, Expires: 24 * time.Hour},
	"0005": {Name: "system_zones", I: `^(00[01][0-9A-F]{5}){1,3}$`, RQ: `^00[01][0-9A-F]$`, RP: `^00[01][0-9A-F]{3,5}$`, Expires: Never},
	"0006": {Name: "schedule_version", RQ: `^00$`, RP: `^0005[0-9A-F]{4}$`},
	"0008": {Name: "relay_demand", I: `^((0[0-9A-F]|F[9AC])[0-9A-F]{2}|00[0-9A-F]{24})$`, RQ: `^00$`, RP: `^00[0-9A-F]{2}$`},
	"0009": {Name: "relay_failsafe", I: `^((0[0-9A-F]|F[9AC])0[0-1](00|FF))+$`},
	"000A": {Name: "zone_params", I: `^(0[0-9A-F][0-9A-F]{10}){1,8}$`, RQ: `^0[0-9A-F]((00)?|([0-9A-F]{10})+)$`, RP: `^0[0-9A-F][0-9A-F]{10}$`, W: `^0[0-9A-F][0-9A-F]{10}$`, Expires: 24 * time.Hour},
	"000C": {Name: "zone_devices", I: `^(0[0-9A-F][01][0-9A-F](0[0-9A-F]|7F)[0-9A-F]{6}){1,8}$`, RQ: `^0[0-9A-F][01][0-9A-F]$`, RP: `^(0[0-9A-F][01][0-9A-F](0[0-9A-F]|7F)[0-9A-F]{6}){1,8}$`, Expires: Never},
	"000E": {Name: "message_000e", I: `^000014$`},
	"0016": {Name: "rf_check", RQ: `^0[0-9A-F]([0-9A-F]{2})?$`, RP: `^0[0-9A-F]{3}$`},
	"0100": {Name: "language", RQ: `^00([0-9A-F]{4}F{4})?$`, RP: `^00[0-9A-F]{4}F{4}$`, Expires: 24 * time.Hour},
	"0150": {Name: "message_0150", RQ: `^00$`, RP: `^000000$`},
	"01D0": {Name: "message_01d0", I: `^0[0-9A-F][0-9A-F]{2}$`, W: `^0[0-9A-F][0-9A-F]{2}$`},
	"01E9": {Name: "message_01e9", I: `^0[0-9A-F][0-9A-F]{2}$`, W: `^0[0-9A-F][0-9A-F]{2}$`},
	"0404": {Name: "zone_schedule", I: `^0[0-9A-F](20|23)[0-9A-F]{2}08[0-9A-F]{6}$`, RQ: `^0[0-9A-F](20|23)000800[0-9A-F]{4}$`, RP: `^0[0-9A-F](20|23)0008[0-9A-F]{6}[0-9A-F]{2,82}$`, W: `^0[0-9A-F](20|23)[0-9A-F]{2}08[0-9A-F]{6}[0-9A-F]{2,82}$`, Expires: Never},
	"0418": {Name: "system_fault", I: `^00(00|40|C0)[0-3][0-9A-F]B0[0-9A-F]{6}0000[0-9A-F]{12}FFFF700[012][0-9A-F]{6}$`, RQ: `^0000[0-3][0-9A-F]$`, RP: `^00(00|40|C0)[0-3][0-9A-F]B0[0-9A-F]{6}0000[0-9A-F]{12}FFFF700[012][0-9A-F]{6}$`},
	"042F": {Name: "message_042f", I: `^00([0-9A-F]{2}){7,8}$`, RQ: `^00$`, RP: `^00([0-9A-F]{2}){7,8}$`},
	"0B04": {Name: "message_0b04", I: `^00(00|C8)$`},
	"1030": {Name: "mixvalve_params", I: `^0[0-9A-F](C[89A-C]01[0-9A-F]{2}){5}$`},
	"1060": {Name: "device_battery", I: `^0[0-9A-F](FF|[0-9A-F]{2})0[01]$`, Expires: 24 * time.Hour},
	"1081": {Name: "max_ch_setpoint", RQ: `^00$`, RP: `^00[0-9A-F]{4}$`},
	"1090": {Name: "message_1090", RQ: `^00$`, RP: `^00`},
	"1098": {Name: "message_1098", RQ: `^00$`, RP: `^00`},
	"10A0": {Name: "dhw_params", I: `^0[01][0-9A-F]{4}([0-9A-F]{6})?$`, RQ: `^0[01]([0-9A-F]{10})?$`, RP: `^0[01][0-9A-F]{4}([0-9A-F]{6})?$`, W: `^0[01][0-9A-F]{4}([0-9A-F]{6})?$`, Expires: 4 * time.Hour},
	"10B0": {Name: "message_10b0", RQ: `^00$`, RP: `^00[0-9A-F]{8}$`},
	"10D0": {Name: "filter_change", I: `^00[0-9A-F]{6}(0000)?$`, RQ: `^00(00)?$`, RP: `^00[0-9A-F]{6}(0000)?$`, W: `^00FF$`},
	"10E0": {Name: "device_info", I: `^00[0-9A-F]{30,}$`, RQ: `^00$`, RP: `^00[0-9A-F]{30,}$`, Expires: Never},
	"10E1": {Name: "device_id", RQ: `^00$`, RP: `^00[0-9A-F]{6}$`, Expires: Never},
	"10E2": {Name: "unknown_10e2", I: `^00[0-9A-F]{4}$`},
	"1100": {Name: "tpi_params", I: `^(00|FC)[0-9A-F]{6}(00|FF)([0-9A-F]{4}01)?$`, RQ: `^(00|FC)([0-9A-F]{6}(00|FF)([0-9A-F]{4}01)?)?$`, RP: `^(00|FC)[0-9A-F]{6}(00|FF)([0-9A-F]{4}01)?$`, W: `^(00|FC)[0-9A-F]{6}(00|FF)([0-9A-F]{4}01)?$`, Expires: 24 * time.Hour},
	"11F0": {Name: "message_11f0", I: `^00`},
	"1260": {Name: "dhw_temp", I: `^0[01][0-9A-F]{4}$`, RQ: `^0[01](00)?$`, RP: `^0[01][0-9A-F]{4}$`, Expires: 1 * time.Hour},
	"1280": {Name: "outdoor_humidity", I: `^00[0-9A-F]{2}[0-9A-F]{8}?$`},
	"1290": {Name: "outdoor_temp", I: `^00[0-9A-F]{4}$`, RQ: `^00$`, RP: `^00[0-9A-F]{4}$`},
	"1298": {Name: "co2_level", I: `^00[0-9A-F]{4}$`},
	"12A0": {Name: "indoor_humidity", I: `^00[0-9A-F]{2}([0-9A-F]{8}(00)?)?$`, Expires: 1 * time.Hour},
	"12B0": {Name: "window_state", I: `^0[0-9A-F](0000|C800|FFFF)$`, RQ: `^0[0-9A-F](00)?$`, RP: `^0[0-9A-F](0000|C800|FFFF)$`, Expires: 1 * time.Hour},
	"12C0": {Name: "displayed_temp", I: `^00[0-9A-F]{2}0[01](FF)?$`},
	"12C8": {Name: "air_quality", I: `^00[0-9A-F]{4}$`},
	"12F0": {Name: "dhw_flow_rate", RQ: `^00$`, RP: `^00[0-9A-F](4)$`},
	"1300": {Name: "ch_pressure", RQ: `^00$`, RP: `^00[0-9A-F]{4}$`},
	"1470": {Name: "programme_scheme", I: `^00[0-9A-F]{14}$`, RQ: `^00$`, RP: `^00[0-9A-F]{14}$`, W: `^00[0-9A-F]{2}0{4}800{6}$`},
	"1F09": {Name: "system_sync", I: `^(00|01|DB|FF)[0-9A-F]{4}$`, RQ: `^00$`, RP: `^00[0-9A-F]{4}$`, W: `^F8[0-9A-F]{4}$`},
	"1F41": {Name: "dhw_mode", I: `^0[01](00|01|FF)0[0-5]F{6}(([0-9A-F]){12})?$`, RQ: `^0[01]$`, RP: `^0[01](00|01|FF)0[0-5]F{6}(([0-9A-F]){12})?$`, W: `^0[01](00|01|FF)0[0-5]F{6}(([0-9A-F]){12})?$`, Expires: 4 * time.Hour},
	"1F70": {Name: "programme_config", I: `^00[0-9A-F]{30}$`, RQ: `^00[0-9A-F]{30}$`, RP: `^00[0-9A-F]{30}$`, W: `^00[0-9A-F]{30}$`},
	"1FC9": {Name: "rf_bind", I: `^((0[0-9A-F]|F[69ABCF]|63|67)([0-9A-F]{10}))+|00$`, RQ: `^00$`, RP: `^((0[0-9A-F]|F[69ABCF]|90)([0-9A-F]{10}))+$`, W: `^((0[0-9A-F]|F[69ABCF])([0-9A-F]{10}))+$`},
	"1FCA": {Name: "message_1fca", I: `^((0[0-9A-F]|F[9ABCF])([0-9A-F]{10}))+$`, RQ: `^00$`, RP: `^((0[0-9A-F]|F[9ABCF]|90)([0-9A-F]{10}))+$`, W: `^((0[0-9A-F]|F[9ABCF])([0-9A-F]{10}))+$`},
	"1FD0": {Name: "message_1fd0", RQ: `^00$`, RP: `^00`},
	"1FD4": {Name: "opentherm_sync", I: `^00([0-9A-F]{4})$`},
	"2249": {Name: "setpoint_now", I: `^(0[0-9A-F]{13}){1,2}$`},
	"22B0": {Name: "programme_status", I: `^00[0-9A-F]{2}$`, W: `^00[0-9A-F]{2}$`},
	"22C9": {Name: "ufh_setpoint", I: `^(0[0-9A-F][0-9A-F]{8}0[12]){1,4}$`},
	"22D0": {Name: "message_22d0", I: `^00`},
	"22D9": {Name: "boiler_setpoint", RQ: `^00$`, RP: `^00[0-9A-F]{4}$`},
	"22F1": {Name: "fan_mode", I: `^(00|63)(0[0-9A-F]){1,2}$`},
	"22F3": {Name: "fan_boost", I: `^(00|63)[0-9A-F]{4}([0-9A-F]{8})?$`},
	"22F7": {Name: "fan_bypass_mode", I: `^00([0-9A-F]{2}){1,2}$`, RQ: `^00$`, RP: `^00([0-9A-F]{2}){1,2}$`, W: `^00[0-9A-F]{2}(EF)?$`},
	"22F8": {Name: "fan_22f8", I: `^00[0-9A-F]{4}$`},
	"2309": {Name: "setpoint", I: `^(0[0-9A-F]{5})+$`, RQ: `^0[0-9A-F]([0-9A-F]{4})?$`, RP: `^(0[0-9A-F]{5})+$`, W: `^0[0-9A-F]{5}$`, Expires: 30 * time.Minute},
	"2349": {Name: "zone_mode", I: `^0[0-9A-F]{5}0[0-4][0-9A-F]{6}([0-9A-F]{12})?$`, RQ: `^0[0-9A-F](00|[0-9A-F]{12})?$`, RP: `^0[0-9A-F]{5}0[0-4][0-9A-F]{6}([0-9A-F]{12})?$`, W: `^0[0-9A-F]{5}0[0-4][0-9A-F]{6}([0-9A-F]{12})?$`, Expires: 4 * time.Hour},
	"2389": {Name: "unknown_2389", I: `^0[0-4][0-9A-F]{4}$`},
	"2400": {Name: "message_2400", RQ: `^00$`, RP: `^00`},
	"2401": {Name: "message_2401", RQ: `^00$`, RP: `^00`},
	"2410": {Name: "message_2410", RQ: `^00$`, RP: `^00`},
	"2411": {Name: "fan_params", I: `^0000[0-9A-F]{6}([0-9A-F]{8}){4}[0-9A-F]{4}$`, RQ: `^0000[0-9A-F]{2}((00){19})?$`, RP: `^0000[0-9A-F]{6}([0-9A-F]{8}){4}[0-9A-F]{4}$`, W: `^0000[0-9A-F]{6}[0-9A-F]{8}(([0-9A-F]{8}){3}[0-9A-F]{4})?$`},
	"2420": {Name: "message_2420", RQ: `^00$`, RP: `^00`},
	"2D49": {Name: "message_2d49", I: `^(0[0-9A-F]|88|F6|FD)[0-9A-F]{2}(00||FF)$`},
	"2E04": {Name: "system_mode", I: `^0[0-7][0-9A-F]{12}0[01]$`, RQ: `^FF$`, RP: `^0[0-7][0-9A-F]{12}0[01]$`, W: `^0[0-7][0-9A-F]{12}0[01]$`, Expires: 4 * time.Hour},
	"2E10": {Name: "presence_detect", I: `^00(00|01)(00)?$`},
	"30C9": {Name: "temperature", I: `^(0[0-9A-F][0-9A-F]{4})+$`, RQ: `^0[0-9A-F](00)?$`, RP: `^0[0-9A-F][0-9A-F]{4}$`, Expires: 1 * time.Hour},
	"3110": {Name: "message_3110", I: `^00`},
	"3120": {Name: "message_3120", I: `^00[0-9A-F]{10}FF$`, RQ: `^00$`, RP: `^00[0-9A-F]{10}FF$`},
	"313F": {Name: "datetime", I: `^00[0-9A-F]{16}$`, RQ: `^00$`, RP: `^00[0-9A-F]{16}$`, W: `^00[0-9A-F]{16}$`, Expires: 3 * time.Second},
	"3150": {Name: "heat_demand", I: `^((0[0-9A-F])[0-9A-F]{2}|FC[0-9A-F]{2})+$`, Expires: 20 * time.Minute},
	"31D9": {Name: "fan_state", I: `^(00|01|21)[0-9A-F]{4}(([0-9A-F]{2})(00|20){0,12}(00|08)?)?$`, RQ: `^00$`, RP: `^(00|01|21)[0-9A-F]{4}(([0-9A-F]{2})(00|20){0,12}(00|08)?)?$`},
	"31DA": {Name: "hvac_state", I: `^(00|01|21)[0-9A-F]{56}(00|20)?$`, RQ: `^(00|01|21)$`, RP: `^(00|01|21)[0-9A-F]{56}(00|20)?$`},
	"31E0": {Name: "fan_demand", I: `^00[0-9A-F]{4,14}(00|FF)?$`},
	"3200": {Name: "boiler_output", RQ: `^00$`, RP: `^00[0-9A-F]{4}$`},
	"3210": {Name: "boiler_return", RQ: `^00$`, RP: `^00[0-9A-F]{4}$`},
	"3220": {Name: "opentherm_msg", RQ: `^00[0-9A-F]{4}0{4}$`, RP: `^00[0-9A-F]{8}$`},
	"3221": {Name: "message_3221", RQ: `^00$`, RP: `^00`},
	"3223": {Name: "message_3223", RQ: `^00$`, RP: `^00`},
	"3B00": {Name: "actuator_sync", I: `^(00|FC)(00|C8)$`},
	"3EF0": {Name: "actuator_state", I: `^..((00|C8)FF|[0-9A-F]{10}|[0-9A-F]{16}|[0-9A-F]{38})$`, RQ: `^00(00)?$`, RP: `^00((00|C8)FF|[0-9A-F]{10}|[0-9A-F]{16})$`},
	"3EF1": {Name: "actuator_cycle", RQ: `^00((00)?|[0-9A-F]{22})$`, RP: `^00([0-9A-F]{12}|[0-9A-F]{34})$`},
	"4401": {Name: "unknown_4401", I: `^[0-9A-F]{40}$`, RQ: `^[0-9A-F]{40}$`, RP: `^[0-9A-F]{40}$`},
	"7FFF": {Name: "puzzle_packet", I: `^00(([0-9A-F]){2})+$`},
}

var (
	rqNoPayload      = codeSet("0002", "0004", "0006", "0008", "0150", "042F", "1081", "1090", "1098", "10B0", "10D0", "10E0", "10E1", "1290", "12B0", "12F0", "1300", "1470", "1F09", "1FC9", "1FCA", "1FD0", "22D9", "22F7", "2400", "2401", "2410", "2420", "2E04", "30C9", "3120", "313F", "31D9", "3200", "3210", "3221", "3223", "3EF0", "0418")
	codeIdxComplex   = codeSet("0005", "000C", "1100", "3220")
	codeIdxSimple    = codeSet("0004", "0008", "0009", "000A", "0016", "01D0", "01E9", "0404", "1030", "1060", "12B0", "1FC9", "1FCA", "2249", "22C9", "2309", "2349", "2D49", "30C9", "3150", "10A0", "1260", "1F41", "3B00")
	codeIdxNone      = codeSet("0001", "0002", "0006", "000E", "0100", "0150", "0418", "042F", "0B04", "1081", "1090", "1098", "10B0", "10D0", "10E0", "10E1", "10E2", "11F0", "1280", "1290", "1298", "12A0", "12C0", "12C8", "12F0", "1300", "1470", "1F09", "1F70", "1FD0", "1FD4", "22D0", "22D9", "22F7", "22F8", "22B0", "2400", "2401", "2410", "2411", "2420", "2E10", "3110", "3120", "313F", "31D9", "31E0", "3200", "3210", "3221", "3223", "3EF0", "3EF1", "7FFF", "22F1", "22F3", "2389", "2E04", "31DA", "4401")
	codesOnlyFromCTL = codeSet("1030", "1F09", "22D0", "313F")
	codesHeatOnly    = codeSet("0004", "0005", "0006", "000A", "000C", "0404", "0418", "10A0", "1260", "1290", "1F41", "22D9", "2309", "2349", "2E04", "3220", "0008", "0009", "1030", "1100", "12B0", "2249", "2D49", "3150", "3B00", "1090", "3EF1", "22D0", "1081", "1098", "10B0", "10E1", "12F0", "1300", "1FD0", "1FD4", "2400", "2401", "2410", "2420", "3200", "3210", "3221", "3223", "11F0")
	codesHVACOnly    = codeSet("1470", "1F70", "22F1", "22F3", "22F7", "22B0", "2411", "31DA", "2E10", "3110", "31D9", "1298", "12A0", "12C8", "31E0")
)

var codeIdxDomain = map[Code]string{
	"0001": `^F[ACF]`,
	"0008": `^F[9AC]`,
	"0009": `^F[9AC]`,
	"1100": `^FC`,
	"1FC9": `^F[9ABCF]`,
	"3150": `^FC`,
	"3B00": `^FC`,
}

var codesByClass = map[Class]map[Code][]Verb{
	HGI: {
		"7FFF": {I, RQ, W},
	},
	DIS: {
		"0001": {RQ},
		"042F": {I},
		"10E0": {I, RQ},
		"1470": {RQ},
		"1FC9": {I},
		"1F70": {I},
		"22F1": {I},
		"22F3": {I},
		"22F7": {RQ, W},
		"22B0": {W},
		"2411": {RQ, W},
		"313F": {RQ},
		"31DA": {RQ},
	},
	RFS: {
		"1060": {I},
		"10E0": {I, RP},
		"12C0": {I},
		"22C9": {I},
		"22F1": {I},
		"22F3": {I},
		"2E10": {I},
		"30C9": {I},
		"3110": {I},
		"3120": {I},
		"31D9": {RQ},
		"31DA": {RQ},
		"3EF0": {I},
	},
	FAN: {
		"0001": {RP},
		"042F": {I},
		"10E0": {I, RP},
		"1298": {I},
		"12A0": {I},
		"12C8": {I},
		"1470": {RP},
		"1F09": {I, RP},
		"1FC9": {W},
		"22F7": {I, RP},
		"2411": {I, RP},
		"3120": {I},
		"313F": {I, RP},
		"31D9": {I, RP},
		"31DA": {I, RP},
	},
	CO2: {
		"042F": {I},
		"10E0": {I, RP},
		"1298": {I},
		"1FC9": {I},
		"2411": {RQ},
		"2E10": {I},
		"3120": {I},
		"31DA": {RQ},
		"31E0": {I},
	},
	HUM: {
		"042F": {I},
		"1060": {I},
		"10E0": {I},
		"12A0": {I},
		"1FC9": {I},
		"31DA": {RQ},
		"31E0": {I},
	},
	REM: {
		"0001": {RQ},
		"042F": {I},
		"1060": {I},
		"10E0": {I, RQ},
		"1470": {RQ},
		"1FC9": {I},
		"22F1": {I},
		"22F3": {I},
		"22F7": {RQ, W},
		"2411": {RQ, W},
		"313F": {RQ, W},
		"31DA": {RQ},
	},
	RFG: {
		"0002": {RQ},
		"0004": {I, RQ},
		"0005": {RQ},
		"0006": {RQ},
		"000A": {RQ},
		"000C": {RQ},
		"000E": {W},
		"0016": {RP},
		"0404": {RQ, W},
		"0418": {RQ},
		"10A0": {RQ},
		"10E0": {I, RQ, RP},
		"1260": {RQ},
		"1290": {I},
		"1F41": {RQ},
		"1FC9": {RP, W},
		"22D9": {RQ},
		"2309": {I},
		"2349": {RQ, RP, W},
		"2E04": {RQ, I, W},
		"30C9": {RQ},
		"313F": {RQ, RP, W},
		"3220": {RQ},
		"3EF0": {RQ},
	},
	CTL: {
		"0001": {W},
		"0002": {I, RP},
		"0004": {I, RP},
		"0005": {I, RP},
		"0006": {RP},
		"0008": {I},
		"0009": {I},
		"000A": {I, RP},
		"000C": {RP},
		"0016": {RQ, RP},
		"0100": {RP},
		"01D0": {I},
		"01E9": {I},
		"0404": {I, RP},
		"0418": {I, RP},
		"1030": {I},
		"10A0": {I, RP},
		"10E0": {RP},
		"1100": {I, RQ, RP, W},
		"1260": {RP},
		"1290": {RP},
		"12B0": {I, RP},
		"1F09": {I, RP, W},
		"1FC9": {I, RQ, RP, W},
		"1F41": {I, RP},
		"2249": {I},
		"22D9": {RQ},
		"2309": {I, RP},
		"2349": {I, RP},
		"2D49": {I},
		"2E04": {I, RP},
		"30C9": {I, RP},
		"313F": {I, RP, W},
		"3150": {I},
		"3220": {RQ},
		"3B00": {I},
		"3EF0": {RQ},
	},
	PRG: {
		"0009": {I},
		"1090": {RP},
		"10A0": {RP},
		"1100": {I},
		"1F09": {I},
		"2249": {I},
		"2309": {I},
		"30C9": {I},
		"3B00": {I},
		"3EF1": {RP},
	},
	THM: {
		"0001": {W},
		"0005": {I},
		"0008": {I},
		"0009": {I},
		"000A": {I, RQ, W},
		"000C": {I},
		"000E": {I},
		"0016": {RQ},
		"042F": {I},
		"1030": {I},
		"1060": {I},
		"1090": {RQ},
		"10E0": {I},
		"1100": {I},
		"12C0": {I},
		"1F09": {I},
		"1FC9": {I},
		"2309": {I, RQ, W},
		"2349": {RQ, W},
		"30C9": {I},
		"3120": {I},
		"313F": {I},
		"3B00": {I},
		"3EF0": {RQ},
		"3EF1": {RQ},
	},
	UFC: {
		"0001": {RP, W},
		"0005": {RP},
		"0008": {I},
		"000A": {RP},
		"000C": {RP},
		"1FC9": {I},
		"10E0": {I, RP},
		"22C9": {I},
		"22D0": {I, RP},
		"2309": {RP},
		"3150": {I},
	},
	TRV: {
		"0001": {W},
		"0004": {RQ},
		"0016": {RQ, RP},
		"0100": {RQ},
		"01D0": {W},
		"01E9": {W},
		"1060": {I},
		"10E0": {I},
		"12B0": {I},
		"1F09": {RQ},
		"1FC9": {I, W},
		"2309": {I},
		"30C9": {I},
		"313F": {RQ},
		"3150": {I},
	},
	DHW: {
		"0016": {RQ},
		"1060": {I},
		"10A0": {RQ},
		"1260": {I},
		"1FC9": {I},
	},
	OTB: {
		"0009": {I},
		"0150": {RP},
		"042F": {I, RP},
		"1081": {RP},
		"1098": {RP},
		"10A0": {RP},
		"10B0": {RP},
		"10E0": {I, RP},
		"10E1": {RP},
		"1260": {RP},
		"1290": {RP},
		"12F0": {RP},
		"1300": {RP},
		"1FC9": {I, W},
		"1FD0": {RP},
		"1FD4": {I},
		"22D9": {RP},
		"2400": {RP},
		"2401": {RP},
		"2410": {RP},
		"2420": {RP},
		"3150": {I},
		"3200": {RP},
		"3210": {RP},
		"3220": {RP},
		"3221": {RP},
		"3223": {RP},
		"3EF0": {I, RP},
		"3EF1": {RP},
	},
	BDR: {
		"0008": {RP},
		"0016": {RP},
		"1100": {I, RP},
		"11F0": {I},
		"1FC9": {RP, W},
		"2D49": {I},
		"3B00": {I},
		"3EF0": {I},
		"3EF1": {RP},
	},
	OUT: {
		"0002": {I},
		"1FC9": {I},
	},
	JIM: {
		"0008": {RQ},
		"10E0": {I},
		"1100": {I},
		"3EF0": {I},
		"3EF1": {RP},
	},
	JST: {
		"0008": {I},
		"10E0": {I},
		"3EF1": {RQ, RP},
	},
}
