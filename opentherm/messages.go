// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package opentherm

var messages = map[uint8]Message{
	0x00: {Name: "Status", Dir: ReadOnly, HB: Flag8, LB: Flag8, Split: true, Flags: "status_flags"},
	0x01: {Name: "Control setpoint", Dir: WriteOnly, Val: F88, Var: "ControlSetpoint", Sensor: SensorTemperature},
	0x02: {Name: "Master configuration", Dir: WriteOnly, HB: Flag8, LB: U8, Split: true, VarLB: "MasterMemberId", SplitVar: true, Flags: "master_config_flags"},
	0x03: {Name: "Slave configuration", Dir: ReadOnly, HB: Flag8, LB: U8, Split: true, VarLB: "SlaveMemberId", SplitVar: true, Flags: "slave_config_flags"},
	0x04: {Name: "Remote command", Dir: WriteOnly, Val: U8, Var: "RemoteCommand"},
	0x05: {Name: "Fault flags & OEM fault code", Dir: ReadOnly, HB: Flag8, LB: U8, Split: true, VarLB: "OEMFaultCode", SplitVar: true, Flags: "fault_flags"},
	0x06: {Name: "Remote parameter flags", Dir: ReadOnly, Val: Flag8, Flags: "remote_flags"},
	0x07: {Name: "Cooling control signal", Dir: WriteOnly, Val: F88, Var: "CoolingControlSignal", Sensor: SensorPercentage},
	0x08: {Name: "Control setpoint for 2nd CH circuit", Dir: WriteOnly, Val: F88, Var: "CH2ControlSetpoint", Sensor: SensorTemperature},
	0x09: {Name: "Remote override room setpoint", Dir: ReadOnly, Val: F88, Var: "RemoteOverrideRoomSetpoint", Sensor: SensorTemperature},
	0x0A: {Name: "Number of transparent slave parameters supported by slave", Dir: ReadOnly, Val: U8, VarHB: "TSPNumber", SplitVar: true},
	0x0B: {Name: "Index number/value of referred-to transparent slave parameter", Dir: ReadWrite, Val: U8, VarHB: "TSPIndex", VarLB: "TSPValue", SplitVar: true},
	0x0C: {Name: "Size of fault history buffer supported by slave", Dir: ReadOnly, Val: U8, VarHB: "FHBSize", SplitVar: true},
	0x0D: {Name: "Index number/value of referred-to fault history buffer entry", Dir: ReadOnly, Val: U8, VarHB: "FHBIndex", VarLB: "FHBValue", SplitVar: true},
	0x0E: {Name: "Max. relative modulation level", Dir: WriteOnly, Val: F88, Var: "MaxRelativeModulationLevel", Sensor: SensorPercentage},
	0x0F: {Name: "Max. boiler capacity (kW) and modulation level setting (%)", Dir: ReadOnly, Val: U8, VarHB: "MaxBoilerCapacity", VarLB: "MinModulationLevel", SplitVar: true},
	0x10: {Name: "Room setpoint", Dir: WriteOnly, Val: F88, Var: "CurrentSetpoint", Sensor: SensorTemperature},
	0x11: {Name: "Relative modulation level", Dir: ReadOnly, Val: F88, Var: "RelativeModulationLevel", Sensor: SensorPercentage},
	0x12: {Name: "Central heating water pressure (bar)", Dir: ReadOnly, Val: F88, Var: "CHWaterPressure", Sensor: SensorPressure},
	0x13: {Name: "DHW flow rate (litres/minute)", Dir: ReadOnly, Val: F88, Var: "DHWFlowRate", Sensor: SensorFlowRate},
	0x14: {Name: "Day of week & Time of day", Dir: ReadWrite, HB: U8, LB: U8, Split: true, VarHB: "DayHour", VarLB: "Minutes", SplitVar: true},
	0x15: {Name: "Date", Dir: ReadWrite, Val: U8, VarHB: "Month", VarLB: "DayOfMonth", SplitVar: true},
	0x16: {Name: "Year", Dir: ReadWrite, Val: U16, Var: "Year"},
	0x17: {Name: "Room setpoint for 2nd CH circuit", Dir: WriteOnly, Val: F88, Var: "CH2CurrentSetpoint", Sensor: SensorTemperature},
	0x18: {Name: "Room temperature", Dir: ReadOnly, Val: F88, Var: "CurrentTemperature", Sensor: SensorTemperature},
	0x19: {Name: "Boiler water temperature", Dir: ReadOnly, Val: F88, Var: "BoilerWaterTemperature", Sensor: SensorTemperature},
	0x1A: {Name: "DHW temperature", Dir: ReadOnly, Val: F88, Var: "DHWTemperature", Sensor: SensorTemperature},
	0x1B: {Name: "Outside temperature", Dir: ReadOnly, Val: F88, Var: "OutsideTemperature", Sensor: SensorTemperature},
	0x1C: {Name: "Return water temperature", Dir: ReadOnly, Val: F88, Var: "ReturnWaterTemperature", Sensor: SensorTemperature},
	0x1D: {Name: "Solar storage temperature", Dir: ReadOnly, Val: F88, Var: "SolarStorageTemperature", Sensor: SensorTemperature},
	0x1E: {Name: "Solar collector temperature", Dir: ReadOnly, Val: F88, Var: "SolarCollectorTemperature", Sensor: SensorTemperature},
	0x1F: {Name: "Flow temperature for 2nd CH circuit", Dir: ReadOnly, Val: F88, Var: "CH2FlowTemperature", Sensor: SensorTemperature},
	0x20: {Name: "DHW 2 temperature", Dir: ReadOnly, Val: F88, Var: "DHW2Temperature", Sensor: SensorTemperature},
	0x21: {Name: "Boiler exhaust temperature", Dir: ReadOnly, Val: S16, Var: "BoilerExhaustTemperature", Sensor: SensorTemperature},
	0x24: {Name: "Electrical current through burner flame (µA)", Dir: ReadOnly, Val: F88, Var: "BurnerCurrent", Sensor: SensorCurrent},
	0x25: {Name: "Room temperature for 2nd CH circuit", Dir: ReadOnly, Val: F88, Var: "CH2CurrentTemperature", Sensor: SensorTemperature},
	0x26: {Name: "Relative humidity", Dir: ReadOnly, Val: U8, VarHB: "RelativeHumidity", SplitVar: true, Sensor: SensorHumidity},
	0x30: {Name: "DHW setpoint boundaries", Dir: ReadOnly, Val: S8, VarHB: "DHWUpperBound", VarLB: "DHWLowerBound", SplitVar: true, Sensor: SensorTemperature},
	0x31: {Name: "Max. central heating setpoint boundaries", Dir: ReadOnly, Val: S8, VarHB: "CHUpperBound", VarLB: "CHLowerBound", SplitVar: true, Sensor: SensorTemperature},
	0x32: {Name: "OTC heat curve ratio upper & lower bounds", Dir: ReadOnly, Val: S8, VarHB: "OTCUpperBound", VarLB: "OTCLowerBound", SplitVar: true},
	0x38: {Name: "DHW setpoint", Dir: ReadWrite, Val: F88, Var: "DHWSetpoint", Sensor: SensorTemperature},
	0x39: {Name: "Max. central heating water setpoint", Dir: ReadWrite, Val: F88, Var: "MaxCHWaterSetpoint", Sensor: SensorTemperature},
	0x3A: {Name: "OTC heat curve ratio", Dir: ReadWrite, Val: F88, Var: "OTCHeatCurveRatio", Sensor: SensorRatio},
	0x46: {Name: "Status ventilation/heat-recovery", Dir: ReadOnly, Val: Flag8, Var: "VHStatus"},
	0x47: {Name: "Control setpoint ventilation/heat-recovery", Dir: WriteOnly, Val: U8, VarHB: "VHControlSetpoint", SplitVar: true},
	0x48: {Name: "Fault flags/code ventilation/heat-recovery", Dir: ReadOnly, HB: Flag8, LB: U8, Split: true, VarLB: "VHFaultCode", SplitVar: true},
	0x49: {Name: "Diagnostic code ventilation/heat-recovery", Dir: ReadOnly, Val: U16, Var: "VHDiagnosticCode"},
	0x4A: {Name: "Config/memberID ventilation/heat-recovery", Dir: ReadOnly, HB: Flag8, LB: U8, Split: true, VarLB: "VHMemberId", SplitVar: true},
	0x4B: {Name: "OpenTherm version ventilation/heat-recovery", Dir: ReadOnly, Val: F88, Var: "VHOpenThermVersion"},
	0x4C: {Name: "Version & type ventilation/heat-recovery", Dir: ReadOnly, Val: U8, VarHB: "VHProductType", VarLB: "VHProductVersion", SplitVar: true},
	0x4D: {Name: "Relative ventilation", Dir: ReadOnly, Val: U8, VarHB: "RelativeVentilation", SplitVar: true},
	0x4E: {Name: "Relative humidity", Dir: ReadWrite, Val: U8, VarHB: "RelativeHumidity", SplitVar: true, Sensor: SensorHumidity},
	0x4F: {Name: "CO2 level", Dir: ReadWrite, Val: U16, Var: "CO2Level", Sensor: SensorCO2},
	0x50: {Name: "Supply inlet temperature", Dir: ReadOnly, Val: F88, Var: "SupplyInletTemperature", Sensor: SensorTemperature},
	0x51: {Name: "Supply outlet temperature", Dir: ReadOnly, Val: F88, Var: "SupplyOutletTemperature", Sensor: SensorTemperature},
	0x52: {Name: "Exhaust inlet temperature", Dir: ReadOnly, Val: F88, Var: "ExhaustInletTemperature", Sensor: SensorTemperature},
	0x53: {Name: "Exhaust outlet temperature", Dir: ReadOnly, Val: F88, Var: "ExhaustOutletTemperature", Sensor: SensorTemperature},
	0x54: {Name: "Actual exhaust fan speed", Dir: ReadOnly, Val: U16, Var: "ExhaustFanSpeed"},
	0x55: {Name: "Actual inlet fan speed", Dir: ReadOnly, Val: U16, Var: "InletFanSpeed"},
	0x56: {Name: "Remote parameter settings ventilation/heat-recovery", Dir: ReadOnly, Val: Flag8, Var: "VHRemoteParameter"},
	0x57: {Name: "Nominal ventilation value", Dir: ReadWrite, Val: U8, Var: "NominalVentilation"},
	0x58: {Name: "TSP number ventilation/heat-recovery", Dir: ReadOnly, Val: U8, VarHB: "VHTSPSize", SplitVar: true},
	0x59: {Name: "TSP entry ventilation/heat-recovery", Dir: ReadWrite, Val: U8, VarHB: "VHTSPIndex", VarLB: "VHTSPValue", SplitVar: true},
	0x5A: {Name: "Fault buffer size ventilation/heat-recovery", Dir: ReadOnly, Val: U8, VarHB: "VHFHBSize", SplitVar: true},
	0x5B: {Name: "Fault buffer entry ventilation/heat-recovery", Dir: ReadOnly, Val: U8, VarHB: "VHFHBIndex", VarLB: "VHFHBValue", SplitVar: true},
	0x64: {Name: "Remote override function", Dir: ReadOnly, HB: Flag8, LB: U8, Split: true, VarHB: "RemoteOverrideFunction", SplitVar: true},
	0x71: {Name: "Number of un-successful burner starts", Dir: ReadWrite, Val: U16, Var: "BadStartsBurner?", Sensor: SensorCounter},
	0x72: {Name: "Number of times flame signal was too low", Dir: ReadWrite, Val: U16, Var: "LowSignalsFlame?", Sensor: SensorCounter},
	0x73: {Name: "OEM diagnostic code", Dir: ReadOnly, Val: U16, Var: "OEMDiagnosticCode"},
	0x74: {Name: "Number of starts burner", Dir: ReadWrite, Val: U16, Var: "StartsBurner", Sensor: SensorCounter},
	0x75: {Name: "Number of starts central heating pump", Dir: ReadWrite, Val: U16, Var: "StartsCHPump", Sensor: SensorCounter},
	0x76: {Name: "Number of starts DHW pump/valve", Dir: ReadWrite, Val: U16, Var: "StartsDHWPump", Sensor: SensorCounter},
	0x77: {Name: "Number of starts burner during DHW mode", Dir: ReadWrite, Val: U16, Var: "StartsBurnerDHW", Sensor: SensorCounter},
	0x78: {Name: "Number of hours burner is in operation (i.e. flame on)", Dir: ReadWrite, Val: U16, Var: "HoursBurner", Sensor: SensorCounter},
	0x79: {Name: "Number of hours central heating pump has been running", Dir: ReadWrite, Val: U16, Var: "HoursCHPump", Sensor: SensorCounter},
	0x7A: {Name: "Number of hours DHW pump has been running/valve has been opened", Dir: ReadWrite, Val: U16, Var: "HoursDHWPump", Sensor: SensorCounter},
	0x7B: {Name: "Number of hours DHW burner is in operation during DHW mode", Dir: ReadWrite, Val: U16, Var: "HoursDHWBurner", Sensor: SensorCounter},
	0x7C: {Name: "Opentherm version Master", Dir: WriteOnly, Val: F88, Var: "MasterOpenThermVersion"},
	0x7D: {Name: "Opentherm version Slave", Dir: ReadOnly, Val: F88, Var: "SlaveOpenThermVersion"},
	0x7E: {Name: "Master product version and type", Dir: WriteOnly, Val: U8, VarHB: "MasterProductType", VarLB: "MasterProductVersion", SplitVar: true},
	0x7F: {Name: "Slave product version and type", Dir: ReadOnly, Val: U8, VarHB: "SlaveProductType", VarLB: "SlaveProductVersion", SplitVar: true},
}

var flagSchemas = map[string]map[uint16]Flag{
	"status_flags": {
		0x0100: {Name: "Central heating enable", Var: "StatusCHEnabled"},
		0x0200: {Name: "DHW enable", Var: "StatusDHWEnabled"},
		0x0400: {Name: "Cooling enable", Var: "StatusCoolEnabled"},
		0x0800: {Name: "Outside temp. comp. active", Var: "StatusOTCActive"},
		0x1000: {Name: "Central heating 2 enable", Var: "StatusCH2Enabled"},
		0x2000: {Name: "Summer/winter mode", Var: "StatusSummerWinter"},
		0x4000: {Name: "DHW blocking", Var: "StatusDHWBlocked"},
		0x0001: {Name: "Fault indication", Var: "StatusFault"},
		0x0002: {Name: "Central heating mode", Var: "StatusCHMode"},
		0x0004: {Name: "DHW mode", Var: "StatusDHWMode"},
		0x0008: {Name: "Flame status", Var: "StatusFlame"},
		0x0010: {Name: "Cooling status", Var: "StatusCooling"},
		0x0020: {Name: "Central heating 2 mode", Var: "StatusCH2Mode"},
		0x0040: {Name: "Diagnostic indication", Var: "StatusDiagnostic"},
	},
	"master_config_flags": {
		0x0100: {Name: "Smart Power", Var: "ConfigSmartPower"},
	},
	"slave_config_flags": {
		0x0100: {Name: "DHW present", Var: "ConfigDHWpresent"},
		0x0200: {Name: "Control type (modulating on/off)", Var: "ConfigControlType"},
		0x0400: {Name: "Cooling supported", Var: "ConfigCooling"},
		0x0800: {Name: "DHW storage tank", Var: "ConfigDHW"},
		0x1000: {Name: "Master low-off & pump control allowed", Var: "ConfigMasterPump"},
		0x2000: {Name: "Central heating 2 present", Var: "ConfigCH2"},
	},
	"fault_flags": {
		0x0100: {Name: "Service request", Var: "FaultServiceRequest"},
		0x0200: {Name: "Lockout-reset", Var: "FaultLockoutReset"},
		0x0400: {Name: "Low water pressure", Var: "FaultLowWaterPressure"},
		0x0800: {Name: "Gas/flame fault", Var: "FaultGasFlame"},
		0x1000: {Name: "Air pressure fault", Var: "FaultAirPressure"},
		0x2000: {Name: "Water over-temperature", Var: "FaultOverTemperature"},
	},
	"remote_flags": {
		0x0100: {Name: "DHW setpoint enable", Var: "RemoteDHWEnabled"},
		0x0200: {Name: "Max. CH setpoint enable", Var: "RemoteMaxCHEnabled"},
		0x0001: {Name: "DHW setpoint read/write", Var: "RemoteDHWReadWrite"},
		0x0002: {Name: "Max. CH setpoint read/write", Var: "RemoteMaxCHReadWrite"},
	},
}
