package property

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

func TestInsertAndGetByID(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	rent := int64(125000)

	p, err := repo.Insert(ctx, &Property{Title: " T2 Belleville ", Address: "12 rue de Belleville", City: "Paris", RentCents: &rent, OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if p.Title != "T2 Belleville" {
		t.Errorf("title = %q, want trimmed title", p.Title)
	}
	if p.RentCents == nil || *p.RentCents != rent {
		t.Errorf("rent_cents = %v, want %d", p.RentCents, rent)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address != "12 rue de Belleville" {
		t.Errorf("address = %q", got.Address)
	}
	if got.OwnerID != "owner-1" {
		t.Errorf("owner_id = %q, want owner-1", got.OwnerID)
	}
}

func TestInsertWithoutRent(t *testing.T) {
	repo := testRepo(t)

	p, err := repo.Insert(context.Background(), &Property{Title: "Studio", Address: "3 rue Oberkampf", OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if p.RentCents != nil {
		t.Errorf("rent_cents = %d, want nil", *p.RentCents)
	}
	if p.Rent() != "" {
		t.Errorf("Rent() = %q, want empty", p.Rent())
	}
}

func TestInsertValidation(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	negative := int64(-1)

	tests := []struct {
		name string
		p    Property
	}{
		{"missing title", Property{Address: "1 rue X", OwnerID: "owner-1"}},
		{"missing address", Property{Title: "Studio", OwnerID: "owner-1"}},
		{"negative rent", Property{Title: "Studio", Address: "1 rue X", RentCents: &negative, OwnerID: "owner-1"}},
		{"unknown owner", Property{Title: "Studio", Address: "1 rue X", OwnerID: "ghost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Insert(ctx, &tt.p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for _, p := range []Property{
		{Title: "A", Address: "1 rue A", City: "Paris", OwnerID: "owner-1"},
		{Title: "B", Address: "2 rue B", City: "Lyon", OwnerID: "owner-1"},
		{Title: "C", Address: "3 rue C", City: "paris", OwnerID: "owner-2"},
	} {
		if _, err := repo.Insert(ctx, &p); err != nil {
			t.Fatalf("insert %s: %v", p.Title, err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want int
	}{
		{"all", ListOptions{}, 3},
		{"by owner", ListOptions{OwnerID: "owner-1"}, 2},
		{"by city any case", ListOptions{City: "PARIS"}, 2},
		{"owner and city", ListOptions{OwnerID: "owner-2", City: "Paris"}, 1},
		{"no match", ListOptions{City: "Lille"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d properties, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	p, err := repo.Insert(ctx, &Property{Title: "Studio", Address: "3 rue Oberkampf", OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0,00 €"},
		{99, "0,99 €"},
		{125000, "1 250,00 €"},
		{123456789, "1 234 567,89 €"},
		{-5050, "-50,50 €"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	p := &Property{Title: "Studio", Address: "3 rue Oberkampf"}
	if got := p.Label(); got != "Studio, 3 rue Oberkampf" {
		t.Errorf("Label() = %q", got)
	}
	p.Title = ""
	if got := p.Label(); got != "3 rue Oberkampf" {
		t.Errorf("Label() without title = %q", got)
	}
}

func testRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	for _, id := range []string{"owner-1", "owner-2"} {
		if _, err := database.Exec("INSERT INTO users (id, email, role) VALUES (?, ?, 'owner')", id, id+"@example.com"); err != nil {
			t.Fatalf("seed owner: %v", err)
		}
	}
	return NewRepository(database)
}
