package filter

import "testing"

func TestComparisonTypeValid(t *testing.T) {
	valid := []ComparisonType{
		Equal, NotEqual, Less, Greater, LessOrEqual, GreaterOrEqual,
		InList, NotInList, Contains, NotContains, IsNull, IsNotNull,
	}
	for _, c := range valid {
		if !c.Valid() {
			t.Errorf("expected %q to be valid", c)
		}
	}

	invalid := []ComparisonType{"", "like", "EQ", "between"}
	for _, c := range invalid {
		if c.Valid() {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}
