package scene

import (
	"testing"

	"go.viam.com/test"
)

func TestMapDTODirectionHorizontalIsXZPlane(t *testing.T) {
	d, err := MapDTODirection("horizontal")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, DirXZ)
	test.That(t, d.ForcedZeroComponents(), test.ShouldResemble, []int{1})
}

func TestMapDTODirectionVerticalIsY(t *testing.T) {
	d, err := MapDTODirection("vertical")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, DirY)
}

func TestMapDTODirectionAliases(t *testing.T) {
	cases := map[string]Direction{
		"":          DirFree,
		"free":      DirFree,
		"x-aligned": DirX,
		"x":         DirX,
		"y-aligned": DirY,
		"z-aligned": DirZ,
		"z":         DirZ,
		"xy":        DirXY,
		"xz":        DirXZ,
		"yz":        DirYZ,
	}
	for s, want := range cases {
		got, err := MapDTODirection(s)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}
}

func TestMapDTODirectionRejectsUnknown(t *testing.T) {
	_, err := MapDTODirection("diagonal")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestForcedZeroComponentsPerDirection(t *testing.T) {
	test.That(t, DirX.ForcedZeroComponents(), test.ShouldResemble, []int{1, 2})
	test.That(t, DirY.ForcedZeroComponents(), test.ShouldResemble, []int{0, 2})
	test.That(t, DirZ.ForcedZeroComponents(), test.ShouldResemble, []int{0, 1})
	test.That(t, DirXY.ForcedZeroComponents(), test.ShouldResemble, []int{2})
	test.That(t, DirYZ.ForcedZeroComponents(), test.ShouldResemble, []int{0})
	test.That(t, DirFree.ForcedZeroComponents(), test.ShouldBeNil)
}

func TestDirectionString(t *testing.T) {
	test.That(t, DirXZ.String(), test.ShouldEqual, "xz")
	test.That(t, DirFree.String(), test.ShouldEqual, "free")
}
