package logdb

import "testing"

func TestMilestoneRoundTrip(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})

	if m := st.Milestone(); m != 0 {
		t.Errorf("fresh milestone = %d, want 0", m)
	}

	if err := st.UpdateMilestone(7); err != nil {
		t.Fatalf("UpdateMilestone: %v", err)
	}
	if m := st.Milestone(); m != 7 {
		t.Errorf("Milestone = %d, want 7", m)
	}
}

func TestMilestoneSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.UpdateMilestone(99); err != nil {
		t.Fatalf("UpdateMilestone: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	if m := st2.Milestone(); m != 99 {
		t.Errorf("Milestone after reopen = %d, want 99", m)
	}
}

func TestMilestoneIndependentOfAppend(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	if err := st.UpdateMilestone(5); err != nil {
		t.Fatalf("UpdateMilestone: %v", err)
	}
	mustAppend(t, st, []Entry{entry(0, 0, "m", "d")})

	if m := st.Milestone(); m != 5 {
		t.Errorf("Milestone after Append = %d, want unchanged 5", m)
	}
}
