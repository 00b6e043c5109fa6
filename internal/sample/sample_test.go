package sample

import (
	"bytes"
	"testing"

	"homemoney/internal/core"
	"homemoney/internal/csvimport"
)

func TestGenerateDeterministic(t *testing.T) {
	opts := Options{
		Count: 50,
		From:  core.NewDate(2024, 1, 1),
		To:    core.NewDate(2024, 6, 30),
		Seed:  7,
	}
	a := Generate(opts)
	b := Generate(opts)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateWindowAndSalary(t *testing.T) {
	from := core.NewDate(2024, 1, 1)
	to := core.NewDate(2024, 3, 31)
	txs := Generate(Options{Count: 30, From: from, To: to, Seed: 1})

	salaries := 0
	for i, tx := range txs {
		if tx.Date.Time.Before(from.Time) || tx.Date.Time.After(to.Time) {
			t.Errorf("row %d outside window: %s", i, tx.Date.ISO())
		}
		if i > 0 && tx.Date.Time.Before(txs[i-1].Date.Time) {
			t.Errorf("row %d out of order", i)
		}
		if tx.Category == "income" {
			salaries++
			if tx.Amount.Cents <= 0 {
				t.Errorf("salary row %d not a credit", i)
			}
		} else if tx.Amount.Cents >= 0 {
			t.Errorf("spending row %d not a debit: %+v", i, tx)
		}
	}
	if salaries != 3 {
		t.Errorf("salaries = %d, want one per month", salaries)
	}
}

func TestCSVRoundTripsThroughImporter(t *testing.T) {
	txs := Generate(Options{Count: 40, From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 2, 29), Seed: 3})
	data := CSV(txs)

	parsed, skipped, err := csvimport.Parse("sample.csv", bytes.NewReader(data), csvimport.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped %d rows", len(skipped))
	}
	if len(parsed) != len(txs) {
		t.Fatalf("parsed %d rows, want %d", len(parsed), len(txs))
	}
	for i := range parsed {
		if parsed[i].Amount != txs[i].Amount {
			t.Fatalf("row %d amount %v, want %v", i, parsed[i].Amount, txs[i].Amount)
		}
		if parsed[i].Category != txs[i].Category {
			t.Fatalf("row %d category %q, want %q", i, parsed[i].Category, txs[i].Category)
		}
	}
}
