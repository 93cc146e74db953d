package geometry

import (
	"testing"

	"github.com/xtxerr/volimport/internal/errors"
)

func TestBoundingRect(t *testing.T) {
	r, ok := BoundingRect([]Point{{Y: 5, X: -1}, {Y: -2, X: 7}, {Y: 3, X: 3}})
	if !ok {
		t.Fatal("expected ok")
	}
	want := NewRect(-2, -1, 5, 7)
	if r != want {
		t.Errorf("BoundingRect = %v, want %v", r, want)
	}

	if _, ok := BoundingRect(nil); ok {
		t.Error("empty input should not be ok")
	}
}

func TestBoxUnion(t *testing.T) {
	a := NewBox(691, 0, 0, 691, 100, 200)
	b := NewBox(692, -10, 50, 692, 80, 300)

	u, err := a.Union(b)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	want := NewBox(691, -10, 0, 692, 100, 300)
	if !u.Equal(want) {
		t.Errorf("Union = %v, want %v", u, want)
	}
	if !u.Contains(a) || !u.Contains(b) {
		t.Error("union must contain both inputs")
	}
}

func TestBoxUnionDimensionMismatch(t *testing.T) {
	a := NewBox2D(NewRect(0, 0, 1, 1))
	b := NewBox(1, 0, 0, 1, 1, 1)

	if _, err := a.Union(b); !errors.Is(err, errors.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBoxExtend(t *testing.T) {
	base := RectAtZ(NewRect(0, 0, 10, 10), 3, nil)

	same, changed, err := base.Extend(RectAtZ(NewRect(2, 2, 5, 5), 3, nil))
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("extending with a contained box should not change it")
	}
	if !same.Equal(base) {
		t.Errorf("box changed to %v", same)
	}

	grown, changed, err := base.Extend(RectAtZ(NewRect(-1, 0, 10, 12), 3, nil))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("expected change")
	}
	if grown.MinY != -1 || grown.MaxX != 12 {
		t.Errorf("grown = %v", grown)
	}
}

func TestBoxTupleAndNDims(t *testing.T) {
	flat := NewBox2D(NewRect(1, 2, 3, 4))
	if flat.NDims() != 2 {
		t.Errorf("NDims = %d, want 2", flat.NDims())
	}
	if got := flat.Tuple(); len(got) != 4 || got[0] != 1 || got[3] != 4 {
		t.Errorf("Tuple = %v", got)
	}

	box := NewBox(7, 1, 2, 8, 3, 4)
	if box.NDims() != 3 {
		t.Errorf("NDims = %d, want 3", box.NDims())
	}
	if got := box.Tuple(); len(got) != 6 || got[0] != 7 || got[3] != 8 {
		t.Errorf("Tuple = %v", got)
	}
}

func TestRectAtZDefaultsMaxZ(t *testing.T) {
	b := RectAtZ(NewRect(0, 0, 1, 1), 691, nil)
	if *b.MinZ != 691 || *b.MaxZ != 691 {
		t.Errorf("Z extents = %v..%v, want 691..691", *b.MinZ, *b.MaxZ)
	}

	b = RectAtZ(NewRect(0, 0, 1, 1), 691, Z(695))
	if *b.MaxZ != 695 {
		t.Errorf("MaxZ = %v, want 695", *b.MaxZ)
	}
}

func TestBoundsResolve(t *testing.T) {
	rect := NewRect(0, 0, 100, 200)
	box := NewBox(5, 0, 0, 5, 100, 200)

	tests := []struct {
		name    string
		bounds  Bounds
		z       *float64
		wantOK  bool
		wantErr error
		want    Box
	}{
		{"none", NoBounds(), nil, false, nil, Box{}},
		{"box ignores z", BoxBounds(box), Z(9), true, nil, box},
		{"rect with z", RectBounds(rect), Z(5), true, nil, box},
		{"rect without z", RectBounds(rect), nil, false, errors.ErrMissingZLevel, Box{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.bounds.Resolve(tt.z)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("box = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTupleBounds(t *testing.T) {
	b, err := TupleBounds(0, 0, 10, 20)
	if err != nil || b.Kind() != KindRect {
		t.Errorf("4-tuple: kind=%v err=%v", b.Kind(), err)
	}

	b, err = TupleBounds(1, 0, 0, 1, 10, 20)
	if err != nil || b.Kind() != KindBox {
		t.Errorf("6-tuple: kind=%v err=%v", b.Kind(), err)
	}

	for _, n := range []int{0, 3, 5, 7} {
		if _, err := TupleBounds(make([]float64, n)...); !errors.Is(err, errors.ErrUnsupportedBounds) {
			t.Errorf("%d-tuple: expected ErrUnsupportedBounds, got %v", n, err)
		}
	}
}
