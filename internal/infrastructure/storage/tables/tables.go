// Package tables holds the column layouts shared by the postgres and
// sqlite drivers: one column list and one argument builder per crash
// table, in matching order.
package tables

import "crashpipe/internal/domain/crash"

const (
	Crashes      = "crashes"
	People       = "crash_people"
	Vehicles     = "crash_vehicles"
	Fatalities   = "vision_zero_fatalities"
	Jobs         = "scheduled_jobs"
	Executions   = "job_executions"
	DeletionLogs = "data_deletion_logs"
)

// CrashTables lists the purgeable data tables.
func CrashTables() []string {
	return []string{Crashes, People, Vehicles, Fatalities}
}

var EventColumns = []string{
	"crash_record_id", "crash_date", "crash_date_est_i",
	"posted_speed_limit", "traffic_control_device", "device_condition",
	"weather_condition", "lighting_condition",
	"street_no", "street_direction", "street_name",
	"crash_type", "damage", "date_police_notified",
	"prim_contributory_cause", "sec_contributory_cause",
	"work_zone_i", "work_zone_type", "workers_present_i",
	"injuries_total", "injuries_fatal", "injuries_incapacitating",
	"injuries_non_incapacitating", "injuries_reported_not_evident",
	"injuries_no_indication", "injuries_unknown",
	"hit_and_run_i", "dooring_i", "intersection_related_i", "not_right_of_way_i",
	"lane_cnt", "alignment", "roadway_surface_cond", "road_defect",
	"report_type", "most_severe_injury", "beat_of_occurrence",
	"photos_taken_i", "statements_taken_i",
	"latitude", "longitude",
}

func EventArgs(e crash.Event) []any {
	return []any{
		e.CrashRecordID, e.CrashDate, e.CrashDateEstI,
		e.PostedSpeedLimit, e.TrafficControlDevice, e.DeviceCondition,
		e.WeatherCondition, e.LightingCondition,
		e.StreetNo, e.StreetDirection, e.StreetName,
		e.CrashType, e.Damage, e.DatePoliceNotified,
		e.PrimContributoryCause, e.SecContributoryCause,
		e.WorkZoneI, e.WorkZoneType, e.WorkersPresentI,
		e.InjuriesTotal, e.InjuriesFatal, e.InjuriesIncapacitating,
		e.InjuriesNonIncapacitating, e.InjuriesReportedNotEvident,
		e.InjuriesNoIndication, e.InjuriesUnknown,
		e.HitAndRunI, e.DooringI, e.IntersectionRelatedI, e.NotRightOfWayI,
		e.LaneCnt, e.Alignment, e.RoadwaySurfaceCond, e.RoadDefect,
		e.ReportType, e.MostSevereInjury, e.BeatOfOccurrence,
		e.PhotosTakenI, e.StatementsTakenI,
		e.Latitude, e.Longitude,
	}
}

var PersonColumns = []string{
	"crash_record_id", "person_id", "crash_date", "vehicle_id",
	"person_type", "age", "sex",
	"safety_equipment", "airbag_deployed", "ejection",
	"injury_classification", "hospital", "ems_agency", "ems_unit",
	"area_00_i", "area_01_i", "area_02_i", "area_03_i", "area_04_i",
	"area_05_i", "area_06_i", "area_07_i", "area_08_i", "area_09_i",
	"area_10_i", "area_11_i", "area_12_i",
	"drivers_license_state", "drivers_license_class",
	"driver_action", "driver_vision", "physical_condition",
	"pedpedal_action", "pedpedal_visibility", "pedpedal_location",
	"bac_result", "bac_result_value", "cell_phone_use",
}

func PersonArgs(p crash.Person) []any {
	args := []any{
		p.CrashRecordID, p.PersonID, p.CrashDate, p.VehicleID,
		p.PersonType, p.Age, p.Sex,
		p.SafetyEquipment, p.AirbagDeployed, p.Ejection,
		p.InjuryClassification, p.Hospital, p.EmsAgency, p.EmsUnit,
	}
	for _, area := range p.AreaInjuries {
		args = append(args, area)
	}
	return append(args,
		p.DriversLicenseState, p.DriversLicenseClass,
		p.DriverAction, p.DriverVision, p.PhysicalCondition,
		p.PedpedalAction, p.PedpedalVisibility, p.PedpedalLocation,
		p.BacResult, p.BacResultValue, p.CellPhoneUse,
	)
}

var VehicleColumns = []string{
	"crash_unit_id", "crash_record_id", "unit_no",
	"crash_date", "unit_type",
	"num_passengers", "vehicle_id", "cmv_id", "make", "model",
	"lic_plate_state", "vehicle_year", "vehicle_defect",
	"vehicle_type", "vehicle_use",
	"travel_direction", "maneuver", "towed_i", "fire_i",
	"hazmat_placard_i", "hazmat_name", "hazmat_present_i",
	"occupant_cnt", "first_contact_point",
}

func VehicleArgs(v crash.Vehicle) []any {
	return []any{
		v.CrashUnitID, v.CrashRecordID, v.UnitNo,
		v.CrashDate, v.UnitType,
		v.NumPassengers, v.VehicleID, v.CMVID, v.Make, v.Model,
		v.LicPlateState, v.VehicleYear, v.VehicleDefect,
		v.VehicleType, v.VehicleUse,
		v.TravelDirection, v.Maneuver, v.TowedI, v.FireI,
		v.HazmatPlacardI, v.HazmatName, v.HazmatPresentI,
		v.OccupantCnt, v.FirstContactPoint,
	}
}

var FatalityColumns = []string{
	"person_id", "rd_no", "crash_date", "crash_location",
	"victim", "crash_circumstances",
	"latitude", "longitude", "geocoded_column",
}

func FatalityArgs(f crash.Fatality) []any {
	return []any{
		f.PersonID, f.RdNo, f.CrashDate, f.CrashLocation,
		f.Victim, f.CrashCircumstances,
		f.Latitude, f.Longitude, f.GeocodedColumn,
	}
}
