package ergast

// Status is the outcome of an upstream fetch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Result is what a fetch produced. Answer is the decoded JSON body on
// success and a human-readable string on failure.
type Result struct {
	Endpoint Endpoint `json:"endpoint"`
	Status   Status   `json:"status"`
	Answer   any      `json:"answer"`
}

// Driver mirrors an entry of MRData.DriverTable.Drivers.
type Driver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber,omitempty"`
	Code            string `json:"code,omitempty"`
	URL             string `json:"url,omitempty"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
	Nationality     string `json:"nationality"`
}

// Field returns the value of the field with the given JSON name. Unknown
// names and empty values report false.
func (d Driver) Field(name string) (string, bool) {
	var v string
	switch name {
	case "driverId":
		v = d.DriverID
	case "permanentNumber":
		v = d.PermanentNumber
	case "code":
		v = d.Code
	case "url":
		v = d.URL
	case "givenName":
		v = d.GivenName
	case "familyName":
		v = d.FamilyName
	case "dateOfBirth":
		v = d.DateOfBirth
	case "nationality":
		v = d.Nationality
	default:
		return "", false
	}
	return v, v != ""
}

type Location struct {
	Lat      string `json:"lat,omitempty"`
	Long     string `json:"long,omitempty"`
	Locality string `json:"locality,omitempty"`
	Country  string `json:"country"`
}

type Circuit struct {
	CircuitID   string    `json:"circuitId"`
	URL         string    `json:"url,omitempty"`
	CircuitName string    `json:"circuitName,omitempty"`
	Location    *Location `json:"Location,omitempty"`
}

// Session is a scheduled race-weekend session.
type Session struct {
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

type Race struct {
	Season           string   `json:"season"`
	Round            string   `json:"round,omitempty"`
	URL              string   `json:"url,omitempty"`
	RaceName         string   `json:"raceName,omitempty"`
	Circuit          *Circuit `json:"Circuit,omitempty"`
	Date             string   `json:"date"`
	Time             string   `json:"time,omitempty"`
	FirstPractice    *Session `json:"FirstPractice,omitempty"`
	SecondPractice   *Session `json:"SecondPractice,omitempty"`
	ThirdPractice    *Session `json:"ThirdPractice,omitempty"`
	Sprint           *Session `json:"Sprint,omitempty"`
	SprintQualifying *Session `json:"SprintQualifying,omitempty"`
	Qualifying       *Session `json:"Qualifying,omitempty"`
}

type Constructor struct {
	ConstructorID string `json:"constructorId"`
	URL           string `json:"url,omitempty"`
	Name          string `json:"name"`
	Nationality   string `json:"nationality"`
}

type DriverStanding struct {
	Position     string        `json:"position,omitempty"`
	PositionText string        `json:"positionText,omitempty"`
	Points       string        `json:"points,omitempty"`
	Wins         string        `json:"wins,omitempty"`
	Driver       Driver        `json:"Driver"`
	Constructors []Constructor `json:"Constructors"`
}

type StandingsList struct {
	Season          string           `json:"season"`
	Round           string           `json:"round"`
	DriverStandings []DriverStanding `json:"DriverStandings"`
}

type envelope struct {
	MRData struct {
		DriverTable struct {
			Drivers []Driver `json:"Drivers"`
		} `json:"DriverTable"`
		RaceTable struct {
			Races []Race `json:"Races"`
		} `json:"RaceTable"`
		ConstructorTable struct {
			Constructors []Constructor `json:"Constructors"`
		} `json:"ConstructorTable"`
		StandingsTable struct {
			StandingsLists []StandingsList `json:"StandingsLists"`
		} `json:"StandingsTable"`
	} `json:"MRData"`
}
