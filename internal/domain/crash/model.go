package crash

import (
	"time"
)

// Kind identifies one of the four logical record streams served by the
// Chicago Open Data Portal.
type Kind string

const (
	KindCrashes    Kind = "crashes"
	KindPeople     Kind = "people"
	KindVehicles   Kind = "vehicles"
	KindFatalities Kind = "fatalities"
)

// AllKinds returns every endpoint kind in sync order.
func AllKinds() []Kind {
	return []Kind{KindCrashes, KindPeople, KindVehicles, KindFatalities}
}

// ParseKind validates an endpoint slug.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCrashes, KindPeople, KindVehicles, KindFatalities:
		return Kind(s), true
	}
	return "", false
}

// DateField returns the SODA field used for date-window filtering and batch
// ordering. All four datasets expose crash_date.
func (k Kind) DateField() string {
	return "crash_date"
}

// Table returns the persistence table backing the kind.
func (k Kind) Table() string {
	switch k {
	case KindCrashes:
		return "crashes"
	case KindPeople:
		return "crash_people"
	case KindVehicles:
		return "crash_vehicles"
	case KindFatalities:
		return "vision_zero_fatalities"
	}
	return string(k)
}

// Event is one sanitized row of the Traffic Crashes - Crashes dataset.
// Optional fields are pointers; a nil field means the source value was
// missing or failed validation.
type Event struct {
	CrashRecordID *string
	CrashDate     *time.Time
	CrashDateEstI *string

	PostedSpeedLimit     *int
	TrafficControlDevice *string
	DeviceCondition      *string
	WeatherCondition     *string
	LightingCondition    *string

	StreetNo        *int
	StreetDirection *string
	StreetName      *string

	CrashType             *string
	Damage                *string
	DatePoliceNotified    *time.Time
	PrimContributoryCause *string
	SecContributoryCause  *string

	WorkZoneI       *string
	WorkZoneType    *string
	WorkersPresentI *string

	InjuriesTotal              *int
	InjuriesFatal              *int
	InjuriesIncapacitating     *int
	InjuriesNonIncapacitating  *int
	InjuriesReportedNotEvident *int
	InjuriesNoIndication       *int
	InjuriesUnknown            *int

	HitAndRunI           *string
	DooringI             *string
	IntersectionRelatedI *string
	NotRightOfWayI       *string

	LaneCnt            *int
	Alignment          *string
	RoadwaySurfaceCond *string
	RoadDefect         *string

	ReportType       *string
	MostSevereInjury *string
	BeatOfOccurrence *string
	PhotosTakenI     *string
	StatementsTakenI *string

	Latitude  *float64
	Longitude *float64
}

// Person is one sanitized row of the Traffic Crashes - People dataset,
// keyed by (crash_record_id, person_id).
type Person struct {
	CrashRecordID *string
	PersonID      *string

	CrashDate *time.Time
	VehicleID *string

	PersonType *string
	Age        *int
	Sex        *string

	SafetyEquipment *string
	AirbagDeployed  *string
	Ejection        *string

	InjuryClassification *string
	Hospital             *string
	EmsAgency            *string
	EmsUnit              *string

	// area_NN_i injury indicators from the source feed.
	AreaInjuries [13]*string

	DriversLicenseState *string
	DriversLicenseClass *string
	DriverAction        *string
	DriverVision        *string
	PhysicalCondition   *string

	PedpedalAction     *string
	PedpedalVisibility *string
	PedpedalLocation   *string

	BacResult      *string
	BacResultValue *float64
	CellPhoneUse   *string
}

// Vehicle is one sanitized row of the Traffic Crashes - Vehicles dataset,
// keyed by crash_unit_id.
type Vehicle struct {
	CrashUnitID   *string
	CrashRecordID *string
	UnitNo        *string

	CrashDate *time.Time
	UnitType  *string

	NumPassengers *int
	VehicleID     *string
	CMVID         *string
	Make          *string
	Model         *string
	LicPlateState *string
	VehicleYear   *int
	VehicleDefect *string
	VehicleType   *string
	VehicleUse    *string

	TravelDirection *string
	Maneuver        *string
	TowedI          *string
	FireI           *string

	HazmatPlacardI *string
	HazmatName     *string
	HazmatPresentI *string

	OccupantCnt       *int
	FirstContactPoint *string
}

// Fatality is one sanitized row of the Vision Zero Traffic Fatalities
// dataset, keyed by person_id. The feed contains repeated rows, so batches
// are deduplicated before persistence.
type Fatality struct {
	PersonID *string
	RdNo     *string

	CrashDate          *time.Time
	CrashLocation      *string
	Victim             *string
	CrashCircumstances *string

	Latitude  *float64
	Longitude *float64

	GeocodedColumn *string
}
