package runtime

import "testing"

func TestInternString(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()

	a, thrown := g.rt.InternString(ctx, "hello")
	if thrown != nil {
		t.Fatalf("InternString failed: %v", thrown)
	}
	if a.Class() != g.rt.StringClass || a.Text() != "hello" {
		t.Fatalf("interned %s %q", a.Class().Name(), a.Text())
	}
	b, _ := g.rt.InternString(ctx, "hello")
	if a != b {
		t.Error("interned strings should compare by pointer")
	}
	other, _ := g.rt.InternString(ctx, "world")
	if other == a {
		t.Error("distinct strings should intern distinct objects")
	}
}

func TestResolveString(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	compute := g.method(t, "Circle", "compute", "()V")

	if g.lc.peekString(g.helloString) != nil {
		t.Fatal("string should start unresolved")
	}
	obj := g.rt.ResolveString(ctx, compute, uint32(g.helloString))
	if obj == nil || obj.Text() != "hello" {
		t.Fatalf("ResolveString = %v", obj)
	}
	if g.lc.peekString(g.helloString) != obj {
		t.Error("resolution was not published")
	}
	if again := g.rt.ResolveString(ctx, compute, uint32(g.helloString)); again != obj {
		t.Error("repeat resolution should return the published object")
	}

	// The pool entry and direct interning share one canonical object.
	interned, _ := g.rt.InternString(ctx, "hello")
	if interned != obj {
		t.Error("pool resolution should intern through the runtime table")
	}
}

// TestResolveStringCrossUnit verifies two units naming the same literal
// share one interned object.
func TestResolveStringCrossUnit(t *testing.T) {
	g := loadGeometry(t, Options{})
	c := loadClient(t, g)
	ctx := g.rt.NewContext()
	compute := g.method(t, "Circle", "compute", "()V")

	mine := g.rt.ResolveString(ctx, compute, uint32(g.helloString))
	theirs := g.rt.ResolveString(ctx, c.run, uint32(c.helloString))
	if mine == nil || mine != theirs {
		t.Error("units naming the same literal should share the interned object")
	}
}

func TestResolveStringOutOfRange(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	compute := g.method(t, "Circle", "compute", "()V")

	defer func() {
		if recover() == nil {
			t.Error("out-of-range string index should panic")
		}
	}()
	g.rt.ResolveString(ctx, compute, 99)
}
