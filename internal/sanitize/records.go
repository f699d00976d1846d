package sanitize

import (
	"fmt"

	"crashpipe/internal/domain/crash"
)

// CrashEvent maps one raw crashes row onto a typed Event.
func (s *Sanitizer) CrashEvent(rec crash.RawRecord) crash.Event {
	return crash.Event{
		CrashRecordID: s.String(rec["crash_record_id"], 128),
		CrashDate:     s.DateTime(rec["crash_date"]),
		CrashDateEstI: s.String(rec["crash_date_est_i"], 1),

		PostedSpeedLimit:     s.Int(rec["posted_speed_limit"]),
		TrafficControlDevice: s.String(rec["traffic_control_device"], 50),
		DeviceCondition:      s.String(rec["device_condition"], 50),
		WeatherCondition:     s.String(rec["weather_condition"], 50),
		LightingCondition:    s.String(rec["lighting_condition"], 50),

		StreetNo:        s.Int(rec["street_no"]),
		StreetDirection: s.String(rec["street_direction"], 5),
		StreetName:      s.String(rec["street_name"], 100),

		CrashType:             s.String(rec["crash_type"], 100),
		Damage:                s.String(rec["damage"], 50),
		DatePoliceNotified:    s.DateTime(rec["date_police_notified"]),
		PrimContributoryCause: s.String(rec["prim_contributory_cause"], 100),
		SecContributoryCause:  s.String(rec["sec_contributory_cause"], 100),

		WorkZoneI:       s.String(rec["work_zone_i"], 1),
		WorkZoneType:    s.String(rec["work_zone_type"], 50),
		WorkersPresentI: s.String(rec["workers_present_i"], 1),

		InjuriesTotal:              s.Int(rec["injuries_total"]),
		InjuriesFatal:              s.Int(rec["injuries_fatal"]),
		InjuriesIncapacitating:     s.Int(rec["injuries_incapacitating"]),
		InjuriesNonIncapacitating:  s.Int(rec["injuries_non_incapacitating"]),
		InjuriesReportedNotEvident: s.Int(rec["injuries_reported_not_evident"]),
		InjuriesNoIndication:       s.Int(rec["injuries_no_indication"]),
		InjuriesUnknown:            s.Int(rec["injuries_unknown"]),

		HitAndRunI:           s.String(rec["hit_and_run_i"], 1),
		DooringI:             s.String(rec["dooring_i"], 1),
		IntersectionRelatedI: s.String(rec["intersection_related_i"], 1),
		NotRightOfWayI:       s.String(rec["not_right_of_way_i"], 1),

		LaneCnt:            s.Int(rec["lane_cnt"]),
		Alignment:          s.String(rec["alignment"], 50),
		RoadwaySurfaceCond: s.String(rec["roadway_surface_cond"], 50),
		RoadDefect:         s.String(rec["road_defect"], 50),

		ReportType:       s.String(rec["report_type"], 50),
		MostSevereInjury: s.String(rec["most_severe_injury"], 50),
		BeatOfOccurrence: s.String(rec["beat_of_occurrence"], 10),
		PhotosTakenI:     s.String(rec["photos_taken_i"], 1),
		StatementsTakenI: s.String(rec["statements_taken_i"], 1),

		Latitude:  s.Latitude(rec["latitude"]),
		Longitude: s.Longitude(rec["longitude"]),
	}
}

// CrashPerson maps one raw people row onto a typed Person.
func (s *Sanitizer) CrashPerson(rec crash.RawRecord) crash.Person {
	p := crash.Person{
		CrashRecordID: s.String(rec["crash_record_id"], 128),
		PersonID:      s.String(rec["person_id"], 128),

		CrashDate: s.DateTime(rec["crash_date"]),
		VehicleID: s.String(rec["vehicle_id"], 20),

		PersonType: s.String(rec["person_type"], 50),
		Age:        s.Age(rec["age"]),
		Sex:        s.String(rec["sex"], 10),

		SafetyEquipment: s.String(rec["safety_equipment"], 100),
		AirbagDeployed:  s.String(rec["airbag_deployed"], 50),
		Ejection:        s.String(rec["ejection"], 50),

		InjuryClassification: s.String(rec["injury_classification"], 50),
		Hospital:             s.String(rec["hospital"], 100),
		EmsAgency:            s.String(rec["ems_agency"], 50),
		EmsUnit:              s.String(rec["ems_unit"], 50),

		DriversLicenseState: s.String(rec["drivers_license_state"], 10),
		DriversLicenseClass: s.String(rec["drivers_license_class"], 50),
		DriverAction:        s.String(rec["driver_action"], 100),
		DriverVision:        s.String(rec["driver_vision"], 50),
		PhysicalCondition:   s.String(rec["physical_condition"], 50),

		PedpedalAction:     s.String(rec["pedpedal_action"], 100),
		PedpedalVisibility: s.String(rec["pedpedal_visibility"], 50),
		PedpedalLocation:   s.String(rec["pedpedal_location"], 100),

		BacResult:      s.String(rec["bac_result"], 50),
		BacResultValue: s.Float(rec["bac_result_value"]),
		CellPhoneUse:   s.String(rec["cell_phone_use"], 50),
	}

	for i := range p.AreaInjuries {
		p.AreaInjuries[i] = s.String(rec[fmt.Sprintf("area_%02d_i", i)], 1)
	}

	return p
}

// CrashVehicle maps one raw vehicles row onto a typed Vehicle.
func (s *Sanitizer) CrashVehicle(rec crash.RawRecord) crash.Vehicle {
	return crash.Vehicle{
		CrashUnitID:   s.String(rec["crash_unit_id"], 20),
		CrashRecordID: s.String(rec["crash_record_id"], 128),
		UnitNo:        s.String(rec["unit_no"], 10),

		CrashDate: s.DateTime(rec["crash_date"]),
		UnitType:  s.String(rec["unit_type"], 50),

		NumPassengers: s.Int(rec["num_passengers"]),
		VehicleID:     s.String(rec["vehicle_id"], 50),
		CMVID:         s.String(rec["cmv_id"], 50),
		Make:          s.String(rec["make"], 100),
		Model:         s.String(rec["model"], 100),
		LicPlateState: s.String(rec["lic_plate_state"], 10),
		VehicleYear:   s.VehicleYear(rec["vehicle_year"]),
		VehicleDefect: s.String(rec["vehicle_defect"], 100),
		VehicleType:   s.String(rec["vehicle_type"], 100),
		VehicleUse:    s.String(rec["vehicle_use"], 50),

		TravelDirection: s.String(rec["travel_direction"], 10),
		Maneuver:        s.String(rec["maneuver"], 100),
		TowedI:          s.String(rec["towed_i"], 1),
		FireI:           s.String(rec["fire_i"], 1),

		HazmatPlacardI: s.String(rec["hazmat_placard_i"], 1),
		HazmatName:     s.String(rec["hazmat_name"], 100),
		HazmatPresentI: s.String(rec["hazmat_present_i"], 1),

		OccupantCnt:       s.Int(rec["occupant_cnt"]),
		FirstContactPoint: s.String(rec["first_contact_point"], 50),
	}
}

// Fatality maps one raw Vision Zero row onto a typed Fatality.
func (s *Sanitizer) Fatality(rec crash.RawRecord) crash.Fatality {
	return crash.Fatality{
		PersonID: s.String(rec["person_id"], 128),
		RdNo:     s.String(rec["rd_no"], 50),

		CrashDate:          s.DateTime(rec["crash_date"]),
		CrashLocation:      s.String(rec["crash_location"], 0),
		Victim:             s.String(rec["victim"], 50),
		CrashCircumstances: s.String(rec["crash_circumstances"], 0),

		Latitude:  s.Latitude(rec["latitude"]),
		Longitude: s.Longitude(rec["longitude"]),

		GeocodedColumn: s.String(rec["geocoded_column"], 0),
	}
}
