package runtime

import "testing"

// TestIsAssignable walks the assignability rules: identity, subclassing,
// interface implementation, array covariance, and primitive invariance.
func TestIsAssignable(t *testing.T) {
	g := loadGeometry(t, Options{})
	rt := g.rt

	object := rt.ObjectClass
	drawable := g.class(t, "Drawable")
	shape := g.class(t, "Shape")
	circle := g.class(t, "Circle")
	square := g.class(t, "Square")
	other := g.class(t, "Other")
	circleArr := g.class(t, "Circle[]")
	shapeArr := g.class(t, "Shape[]")
	objectArr := g.class(t, "Object[]")
	intArr := g.class(t, "int[]")
	longArr := g.class(t, "long[]")

	cases := []struct {
		name      string
		dest, src *TypeDescriptor
		want      int32
	}{
		{"identity", circle, circle, 1},
		{"subclass to superclass", shape, circle, 1},
		{"superclass to subclass", circle, shape, 0},
		{"siblings", circle, square, 0},
		{"implementor to interface", drawable, circle, 1},
		{"unrelated class to interface", drawable, other, 0},
		{"class to Object", object, circle, 1},
		{"interface to Object", object, drawable, 1},
		{"array to Object", object, circleArr, 1},
		{"primitive to Object", object, rt.IntClass, 0},
		{"primitive identity", rt.IntClass, rt.IntClass, 1},
		{"int to long", rt.LongClass, rt.IntClass, 0},
		{"array covariance", shapeArr, circleArr, 1},
		{"array contravariance", circleArr, shapeArr, 0},
		{"reference array to Object[]", objectArr, circleArr, 1},
		{"primitive array identity", intArr, intArr, 1},
		{"primitive array invariance", longArr, intArr, 0},
		{"primitive array to Object[]", objectArr, intArr, 0},
		{"class to array", circleArr, circle, 0},
	}
	for _, c := range cases {
		if got := rt.IsAssignable(c.dest, c.src); got != c.want {
			t.Errorf("%s: IsAssignable(%s, %s) = %d, want %d",
				c.name, c.dest.Name(), c.src.Name(), got, c.want)
		}
	}
}

func TestCheckCast(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()

	shape := g.class(t, "Shape")
	circle := g.class(t, "Circle")
	other := g.class(t, "Other")

	g.rt.CheckCast(ctx, shape, circle)
	if ctx.PendingException() != nil {
		t.Fatalf("upcast raised: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}

	g.rt.CheckCast(ctx, circle, other)
	ex := takePending(t, ctx, g.rt.ClassCastClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "Circle cannot be cast to Other" {
		t.Errorf("message = %q", msg)
	}
}

func TestCheckArrayStore(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	circleArr := g.rt.AllocArray(ctx, uint32(g.circleArrType), from, 4)
	shapeArr := g.rt.AllocArray(ctx, uint32(g.shapeArrType), from, 4)
	if circleArr == nil || shapeArr == nil {
		t.Fatalf("array allocation failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}
	circle := g.alloc(t, ctx, g.circleType)
	square := g.alloc(t, ctx, g.squareType)

	// Storing an element of the exact component type.
	g.rt.CheckArrayStore(ctx, circle, circleArr)
	if ctx.PendingException() != nil {
		t.Fatalf("exact store raised: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}

	// Covariant store into an array of the superclass.
	g.rt.CheckArrayStore(ctx, circle, shapeArr)
	if ctx.PendingException() != nil {
		t.Fatalf("covariant store raised: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}

	// Null stores never raise.
	g.rt.CheckArrayStore(ctx, nil, circleArr)
	if ctx.PendingException() != nil {
		t.Fatal("null store should not raise")
	}

	g.rt.CheckArrayStore(ctx, square, circleArr)
	ex := takePending(t, ctx, g.rt.ArrayStoreClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "Square cannot be stored in an array of type Circle[]" {
		t.Errorf("message = %q", msg)
	}
}
