package dashboard

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

var (
	superAdmin = access.Identity{UserID: "u-root", Roles: []string{access.RoleSuperAdmin}}
	akwaAdmin  = access.Identity{UserID: "u-akwa", Roles: []string{access.RoleAdmin}, StateID: 1}
	nobody     = access.Identity{UserID: "u-none", Roles: []string{"Viewer"}}
)

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse(carerecord.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func window(start, end string) *carerecord.Window {
	w, err := carerecord.NewWindow(day(start), day(end))
	if err != nil {
		panic(err)
	}
	return &w
}

func newTestService(store *carerecord.MemoryStore, opts Options) *Service {
	svc := NewService(store, access.NewResolver(store, zerolog.Nop()), zerolog.Nop(), opts)
	svc.SetClock(func() time.Time { return day("2024-07-15").Add(9 * time.Hour) })
	return svc
}

// statsStore holds patients covering each metric over 2024-01-01..2024-06-30.
func statsStore() *carerecord.MemoryStore {
	end := day("2024-06-30")
	s := carerecord.NewMemoryStore()
	s.States = []carerecord.State{{ID: 1, Name: "Akwa Ibom"}, {ID: 2, Name: "Cross River"}}
	s.Patients = []carerecord.Patient{
		{
			ID: "suppressed", State: "Akwa Ibom", CurrentARTStatus: ptr("Active"), DaysOnART: ptr(200),
			CurrentViralLoad: ptr(450.0), DateOfCurrentViralLoad: ptr(end.AddDate(0, 0, -100)),
			ARTStartDate: dayPtr("2023-01-01"), LastDateOfSampleCollection: dayPtr("2024-03-01"),
			PharmacyLastPickupDate: dayPtr("2024-05-01"),
		},
		{
			ID: "stale-result", State: "Cross River", CurrentARTStatus: ptr("Active"), DaysOnART: ptr(200),
			CurrentViralLoad: ptr(450.0), DateOfCurrentViralLoad: ptr(end.AddDate(0, 0, -400)),
		},
		{
			ID: "unsuppressed", State: "Akwa Ibom", CurrentARTStatus: ptr("Active"), DaysOnART: ptr(365),
			CurrentViralLoad: ptr(5000.0), DateOfCurrentViralLoad: ptr(end.AddDate(0, 0, -10)),
			ARTStartDate: dayPtr("2024-03-01"), LastDateOfSampleCollection: dayPtr("2024-04-01"),
		},
		{
			ID: "interrupted", State: "Akwa Ibom", CurrentARTStatus: ptr("Inactive"),
			PharmacyLastPickupDate: dayPtr("2024-01-01"), DaysOfARVRefill: ptr(30),
		},
		{
			ID: "due-later", State: "Cross River", CurrentARTStatus: ptr("Inactive"), Outcomes: ptr(""),
			PharmacyLastPickupDate: dayPtr("2024-06-10"), DaysOfARVRefill: ptr(30),
		},
		{
			ID: "dead", State: "Cross River", CurrentARTStatus: ptr("Inactive"), Outcomes: ptr("Dead"),
			PharmacyLastPickupDate: dayPtr("2024-01-01"), DaysOfARVRefill: ptr(30),
		},
		{
			ID: "new", State: "Akwa Ibom", CurrentARTStatus: ptr("Active"), DaysOnART: ptr(90),
		},
	}
	s.DrugPickups = []carerecord.DrugPickupAppointment{
		{ID: 1, PepID: "X", DatimCode: "F1", NextAppointmentDate: dayPtr("2024-02-01")},
		{ID: 2, PepID: "Y", DatimCode: "F1", NextAppointmentDate: dayPtr("2024-04-20")},
		{ID: 3, PepID: "Z", DatimCode: "F1"},
	}
	return s
}

// trendStore spans two buckets: 2024-03-01..07 and 2024-03-08..14.
func trendStore() *carerecord.MemoryStore {
	s := carerecord.NewMemoryStore()
	s.Patients = []carerecord.Patient{
		{ID: "T1", PepID: "A", DatimCode: "F1", State: "Akwa Ibom",
			PharmacyLastPickupDate: dayPtr("2024-03-05"), LastDateOfSampleCollection: dayPtr("2024-03-10")},
		{ID: "T2", PepID: "B", DatimCode: "F1", State: "Akwa Ibom", PharmacyLastPickupDate: dayPtr("2024-03-12")},
		{ID: "T3", PepID: "C", DatimCode: "F1", State: "Akwa Ibom"},
	}
	s.DrugPickups = []carerecord.DrugPickupAppointment{
		{ID: 1, PepID: "A", DatimCode: "F1", PharmacyLastPickupDate: dayPtr("2024-02-01"), NextAppointmentDate: dayPtr("2024-03-03")},
		{ID: 2, PepID: "A", DatimCode: "F1", PharmacyLastPickupDate: dayPtr("2024-02-01"), NextAppointmentDate: dayPtr("2024-03-09")},
		{ID: 3, PepID: "B", DatimCode: "F1", PharmacyLastPickupDate: dayPtr("2024-02-10"), NextAppointmentDate: dayPtr("2024-03-13")},
		{ID: 4, PepID: "B", DatimCode: "F2", PharmacyLastPickupDate: dayPtr("2024-02-10"), NextAppointmentDate: dayPtr("2024-03-13")},
		{ID: 5, PepID: "B", DatimCode: "F1", PharmacyLastPickupDate: dayPtr("2024-03-12"), NextAppointmentDate: dayPtr("2024-03-11")},
	}
	s.ViralLoads = []carerecord.ViralLoadAppointment{
		{ID: 1, PepID: "A", DatimCode: "F1", LastDateOfSampleCollection: dayPtr("2024-01-10")},
		{ID: 2, PepID: "A", DatimCode: "F1", LastDateOfSampleCollection: dayPtr("2024-03-10")},
	}
	return s
}

// rankingStore has four teams; Alpha and Delta tie on average score.
func rankingStore() *carerecord.MemoryStore {
	s := carerecord.NewMemoryStore()
	s.States = []carerecord.State{{ID: 1, Name: "Akwa Ibom"}, {ID: 2, Name: "Cross River"}}
	s.CaseManagers = []carerecord.CaseManager{
		{CMID: 1, ID: "CM-A", FullName: "Ada", Team: "Alpha", State: "Akwa Ibom", Facility: "Uyo GH"},
		{CMID: 2, ID: "CM-B", FullName: "Bisi", Team: "Alpha", State: "Akwa Ibom", Facility: "Uyo GH"},
		{CMID: 3, ID: "CM-C", FullName: "Chi", Team: "Beta", State: "Cross River", Facility: "Calabar GH"},
		{CMID: 4, ID: "CM-D", FullName: "Dayo", Team: "Gamma", State: "Cross River", Facility: "Ogoja GH"},
		{CMID: 5, ID: "CM-E", FullName: "Efe", Team: "Delta", State: "Akwa Ibom", Facility: "Eket GH"},
	}
	s.Teams = []carerecord.Team{
		{ID: 10, Name: "Alpha", State: "Akwa Ibom", FacilityName: "Uyo GH"},
		{ID: 11, Name: "Beta", State: "Cross River", FacilityName: "Calabar GH"},
		{ID: 12, Name: "Gamma", State: "Cross River", FacilityName: "Ogoja GH"},
		{ID: 13, Name: "Delta", State: "Akwa Ibom", FacilityName: "Eket GH"},
	}
	s.Performance = []carerecord.PerformanceRecord{
		{ID: 1, CaseManagerID: "CM-A", FinalScore: 50},
		{ID: 2, CaseManagerID: "CM-B", FinalScore: 70},
		{ID: 3, CaseManagerID: "CM-C", FinalScore: 85},
		{ID: 4, CaseManagerID: "CM-D", FinalScore: 60},
		{ID: 5, CaseManagerID: "CM-A", FinalScore: 90},
		{ID: 6, CaseManagerID: "CM-E", FinalScore: 80},
	}
	s.Patients = []carerecord.Patient{
		{ID: "kid", CaseManagerKey: ptr(4), CurrentAge: ptr(9)},
		{ID: "adult", CaseManagerKey: ptr(3), CurrentAge: ptr(40)},
	}
	return s
}
