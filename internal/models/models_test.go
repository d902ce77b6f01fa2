package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestNumberDecoding(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{`{"ltv": 1200.5}`, 1200.5},
		{`{"ltv": "1,200.50"}`, 1200.5},
		{`{"ltv": "45%"}`, 45},
		{`{"ltv": ""}`, 0},
		{`{"ltv": null}`, 0},
		{`{"ltv": "n/a"}`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var c Client
		if err := json.Unmarshal([]byte(tc.in), &c); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if c.LTV.Float() != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.in, tc.want, c.LTV)
		}
	}
}

func TestFallbackLabels(t *testing.T) {
	if got := (Sale{SoldBy: " - "}).Seller(); got != OnlineSystem {
		t.Fatalf("expected %q, got %q", OnlineSystem, got)
	}
	if got := (Sale{}).Seller(); got != Unassigned {
		t.Fatalf("expected %q, got %q", Unassigned, got)
	}
	if got := (Session{Class: "Barre 57"}).ClassName(); got != "Barre 57" {
		t.Fatalf("expected raw class name, got %q", got)
	}
	if got := (Session{}).ClassName(); got != Unknown {
		t.Fatalf("expected %q, got %q", Unknown, got)
	}
	if got := (Client{HomeLocation: "Kenkere House"}).Location(); got != "Kenkere House" {
		t.Fatalf("expected home location fallback, got %q", got)
	}
}

func TestAccessors(t *testing.T) {
	s := Session{Trainer: "Asha", Type: "", ClassType: "Cycle", Capacity: 20, CheckedIn: 5}
	if s.Text(FieldClassType) != "Cycle" {
		t.Fatalf("expected classType fallback, got %q", s.Text(FieldClassType))
	}
	if s.Value(FieldFillRate) != 25 {
		t.Fatalf("expected fill rate 25, got %v", s.Value(FieldFillRate))
	}
	if s.Text(FieldCategory) != "" || s.Value(FieldDiscountAmount) != 0 {
		t.Fatal("fields a record does not carry must read as zero values")
	}
	if (Session{CheckedIn: 4}).FillRate() != 0 {
		t.Fatal("expected 0 fill rate without capacity")
	}
	l := Lead{Center: "Supreme HQ, Bandra"}
	if l.Text(FieldLocation) != l.Center {
		t.Fatalf("expected lead location to read center, got %q", l.Text(FieldLocation))
	}
}

func TestBlankGroupFieldsReadAsLabels(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"client trainer", Client{}.Text(FieldTrainer), NoTrainer},
		{"client membership", Client{}.Text(FieldMembership), NoMembership},
		{"client entity", Client{}.Text(FieldEntity), UnknownEntity},
		{"lead source", Lead{}.Text(FieldSource), Unknown},
		{"lead associate", Lead{}.Text(FieldAssociate), Unassigned},
		{"lead location", Lead{}.Text(FieldLocation), Unknown},
		{"session trainer", Session{}.Text(FieldTrainer), Unknown},
		{"sale category", Sale{}.Text(FieldCategory), Unknown},
		{"sale seller", Sale{SoldBy: "-"}.Text(FieldSoldBy), OnlineSystem},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, tc.got)
		}
	}
	if got := (Client{TrainerName: "Asha"}).Text(FieldTrainer); got != "Asha" {
		t.Fatalf("expected set trainer kept, got %q", got)
	}
}
