package formula

import (
	"strings"
	"testing"
)

func testFrame(t *testing.T) *Frame {
	t.Helper()
	fr := NewFrame(4)
	if err := fr.AddNumeric("temp", []float64{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := fr.AddNumeric("wind", []float64{10, 20, 30, 40}); err != nil {
		t.Fatal(err)
	}
	if err := fr.AddFactor("agesex",
		[]string{"adult_female", "adult_male", "subadult", "adult_female"},
		[]string{"adult_female", "adult_male", "subadult"},
	); err != nil {
		t.Fatal(err)
	}
	return fr
}

func TestDesignNumericAndIntercept(t *testing.T) {
	f, err := Parse("dry ~ temp")
	if err != nil {
		t.Fatal(err)
	}
	x, names, err := f.Design(testFrame(t))
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(names, ","); got != "(Intercept),temp" {
		t.Fatalf("names = %q", got)
	}
	rows, cols := x.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("dims = %dx%d, want 4x2", rows, cols)
	}
	for i := 0; i < 4; i++ {
		if x.At(i, 0) != 1 {
			t.Errorf("intercept row %d = %v, want 1", i, x.At(i, 0))
		}
		if x.At(i, 1) != float64(i+1) {
			t.Errorf("temp row %d = %v, want %d", i, x.At(i, 1), i+1)
		}
	}
}

func TestDesignFactorDummyCoding(t *testing.T) {
	f, err := Parse("dry ~ agesex")
	if err != nil {
		t.Fatal(err)
	}
	x, names, err := f.Design(testFrame(t))
	if err != nil {
		t.Fatal(err)
	}

	// Reference level adult_female gets no column.
	if got := strings.Join(names, ","); got != "(Intercept),agesexadult_male,agesexsubadult" {
		t.Fatalf("names = %q", got)
	}

	want := [][]float64{
		{1, 0, 0}, // adult_female
		{1, 1, 0}, // adult_male
		{1, 0, 1}, // subadult
		{1, 0, 0}, // adult_female
	}
	for i, row := range want {
		for j, v := range row {
			if x.At(i, j) != v {
				t.Errorf("x[%d,%d] = %v, want %v", i, j, x.At(i, j), v)
			}
		}
	}
}

func TestDesignInteraction(t *testing.T) {
	f, err := Parse("dry ~ temp + wind + wind:temp")
	if err != nil {
		t.Fatal(err)
	}
	x, names, err := f.Design(testFrame(t))
	if err != nil {
		t.Fatal(err)
	}

	if names[3] != "wind:temp" {
		t.Fatalf("names[3] = %q, want wind:temp", names[3])
	}
	for i := 0; i < 4; i++ {
		want := x.At(i, 1) * x.At(i, 2)
		if x.At(i, 3) != want {
			t.Errorf("interaction row %d = %v, want %v", i, x.At(i, 3), want)
		}
	}
}

func TestDesignFactorInteraction(t *testing.T) {
	f, err := Parse("dry ~ temp:agesex")
	if err != nil {
		t.Fatal(err)
	}
	x, names, err := f.Design(testFrame(t))
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(names, ","); got != "(Intercept),temp:agesexadult_male,temp:agesexsubadult" {
		t.Fatalf("names = %q", got)
	}
	// Row 1 is adult_male with temp 2; row 2 is subadult with temp 3.
	if x.At(1, 1) != 2 {
		t.Errorf("x[1,1] = %v, want 2", x.At(1, 1))
	}
	if x.At(2, 2) != 3 {
		t.Errorf("x[2,2] = %v, want 3", x.At(2, 2))
	}
	if x.At(0, 1) != 0 || x.At(0, 2) != 0 {
		t.Error("reference-level row should be zero in interaction columns")
	}
}

func TestDesignUnknownVariable(t *testing.T) {
	f, err := Parse("dry ~ salinity")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.Design(testFrame(t)); err == nil {
		t.Fatal("expected error for unknown variable")
	}
}
