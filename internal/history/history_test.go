package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := tempDB(t)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := s.Append(Record{
			RequestID:  fmt.Sprintf("req-%d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Query:      fmt.Sprintf("query %d", i),
			Skill:      "cleanup",
			Outcome:    "executed",
			Confidence: 0.92,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].RequestID != "req-2" || records[1].RequestID != "req-1" {
		t.Errorf("order = [%s %s], want newest first", records[0].RequestID, records[1].RequestID)
	}
	if !records[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("timestamp = %v, want %v", records[0].Timestamp, base.Add(2*time.Minute))
	}
	if records[0].Confidence != 0.92 || records[0].Outcome != "executed" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestRecentEmpty(t *testing.T) {
	s := tempDB(t)

	records, err := s.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append(Record{RequestID: "r1", Timestamp: time.Now(), Query: "q", Outcome: "blocked", Reason: "protected branch"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	records, err := s.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Reason != "protected branch" {
		t.Errorf("records = %+v", records)
	}
}
