package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_users?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func ptr[T any](v T) *T { return &v }

func TestUser_TableName(t *testing.T) {
	if (User{}).TableName() != "users" {
		t.Fatalf("User.TableName() = %q; want %q", (User{}).TableName(), "users")
	}
}

func TestUser_Migration_UniqueEmail(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasTable(&User{}) {
		t.Fatalf("expected users table")
	}

	a := User{Name: "A", Email: "dup@example.com", Age: 30, City: "Paris"}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create a: %v", err)
	}
	if a.ID == 0 {
		t.Fatalf("expected auto-assigned id")
	}
	b := User{Name: "B", Email: "dup@example.com", Age: 40, City: "Rome"}
	if err := db.Create(&b).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate email")
	}
}

func TestUser_BeforeSaveFoldsFilterKeys(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	u := User{Name: "ÉLODIE Durand", Email: "folded@example.com", Age: 30, City: "ZÜRICH"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got User
	if err := db.First(&got, u.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.NameKey != "élodie durand" || got.CityKey != "zürich" {
		t.Fatalf("folded keys = %q, %q", got.NameKey, got.CityKey)
	}

	got.City = "Genève"
	if err := db.Save(&got).Error; err != nil {
		t.Fatalf("save: %v", err)
	}
	if got.CityKey != "genève" {
		t.Fatalf("CityKey after save = %q", got.CityKey)
	}
}

func TestToViews_EmptyIsNotNull(t *testing.T) {
	b, err := json.Marshal(ToViews(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("ToViews(nil) = %s; want []", b)
	}
}

func TestToView_OnlyWireFields(t *testing.T) {
	v := ToView(User{ID: 7, Name: "N", Email: "e@x.io", Age: 33, City: "C"})
	b, _ := json.Marshal(v)
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 5 {
		t.Fatalf("expected exactly 5 fields, got %v", m)
	}
	for _, k := range []string{"id", "name", "email", "age", "city"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %v", k, m)
		}
	}
}

func TestFilterCriteria_Matches(t *testing.T) {
	u := User{Name: "Jane Doe", City: "New York", Age: 30}

	cases := []struct {
		name string
		f    FilterCriteria
		want bool
	}{
		{"empty", FilterCriteria{}, true},
		{"name substring any case", FilterCriteria{Name: ptr("jAnE")}, true},
		{"name miss", FilterCriteria{Name: ptr("john")}, false},
		{"city substring", FilterCriteria{City: ptr("york")}, true},
		{"min inclusive", FilterCriteria{MinAge: ptr(30)}, true},
		{"max inclusive", FilterCriteria{MaxAge: ptr(30)}, true},
		{"below min", FilterCriteria{MinAge: ptr(31)}, false},
		{"above max", FilterCriteria{MaxAge: ptr(29)}, false},
		{"inverted range", FilterCriteria{MinAge: ptr(40), MaxAge: ptr(20)}, false},
		{"all match", FilterCriteria{Name: ptr("doe"), City: ptr("new"), MinAge: ptr(25), MaxAge: ptr(35)}, true},
	}
	for _, tc := range cases {
		if got := tc.f.Matches(u); got != tc.want {
			t.Errorf("%s: Matches = %v; want %v", tc.name, got, tc.want)
		}
	}
}

func TestFilterCriteria_IsEmpty(t *testing.T) {
	if !(FilterCriteria{}).IsEmpty() {
		t.Fatalf("zero criteria should be empty")
	}
	if (FilterCriteria{MaxAge: ptr(1)}).IsEmpty() {
		t.Fatalf("criteria with max age should not be empty")
	}
}

func TestNewArchivalRecord_ShapeAndNulls(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	rec := NewArchivalRecord(at, FilterCriteria{City: ptr("New"), MinAge: ptr(25)}, nil)
	if rec.ResultCount != 0 || rec.Results == nil || rec.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected record: %+v", rec)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{
		`"query_parameters":{"name":null,"city":"New","min_age":25,"max_age":null}`,
		`"results":[]`,
		`"result_count":0`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("archival JSON missing %s: %s", want, s)
		}
	}
}
