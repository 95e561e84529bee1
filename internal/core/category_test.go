package core

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		key  string
		want Category
		name string
	}{
		{"food", CategoryFood, "Ăn uống"},
		{"bills", CategoryBills, "Hóa đơn"},
		{"other", CategoryOther, "Khác"},
		{"all", CategoryAll, "Tất cả"},
		{"unknown-xyz", CategoryOther, "Khác"},
		{"", CategoryOther, "Khác"},
		{"FOOD", CategoryOther, "Khác"},
	}
	for _, tc := range cases {
		got := Resolve(tc.key)
		if got.Key != tc.want || got.Name != tc.name {
			t.Fatalf("Resolve(%q) = %+v, want %s/%s", tc.key, got, tc.want, tc.name)
		}
		if got.Tag == "" {
			t.Fatalf("Resolve(%q) returned empty tag", tc.key)
		}
	}
}

func TestCategoriesOrderAndWildcard(t *testing.T) {
	want := []Category{CategoryFood, CategoryTravel, CategoryShopping, CategoryEntertainment, CategoryHealth, CategoryEducation, CategoryBills, CategoryOther}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Key != want[i] {
			t.Fatalf("position %d: want %s, got %s", i, want[i], got[i].Key)
		}
	}

	// callers must not be able to corrupt the registry
	got[0].Name = "changed"
	if Categories()[0].Name == "changed" {
		t.Fatalf("Categories leaked the registry slice")
	}

	if !IsWildcard("all") || !IsWildcard("") || IsWildcard("food") {
		t.Fatalf("IsWildcard mismatch")
	}
	if IsKnown("all") || !IsKnown("health") || IsKnown("gifts") {
		t.Fatalf("IsKnown mismatch")
	}
	if keys := CategoryKeys(); keys[0] != "food" || keys[len(keys)-1] != "other" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
