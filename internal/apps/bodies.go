package apps

import (
	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/sym"
)

var one = sym.Const(1)

func resourceBodies() engine.Bodies {
	return engine.Bodies{
		"EXTI1": func(ctx *engine.Context) {
			ctx.Claim("X", func(x *engine.Cell, ctx *engine.Context) {
				ctx.Claim("Y", func(y *engine.Cell, ctx *engine.Context) {
					xv := x.Get()
					if ctx.Lt(xv, sym.Const(10)) {
						for i := uint32(0); ctx.Lt(sym.Const(i), xv); i++ {
							y.Set(ctx.Add(y.Get(), one))
						}
					}
				})
			})
		},
		"EXTI2": func(ctx *engine.Context) {
			ctx.Claim("Y", func(y *engine.Cell, ctx *engine.Context) {
				if ctx.Lt(y.Get(), sym.Const(10)) {
					y.Set(ctx.Add(y.Get(), one))
				} else {
					y.Set(ctx.Sub(y.Get(), one))
				}
			})
		},
		"EXTI3": func(ctx *engine.Context) {
			ctx.Claim("X", func(x *engine.Cell, ctx *engine.Context) {
				x.Set(ctx.Add(x.Get(), one))
			})
		},
	}
}

func sharedBodies() engine.Bodies {
	return engine.Bodies{
		"EXTI1": func(ctx *engine.Context) {
			ctx.Claim("X", func(x *engine.Cell, ctx *engine.Context) {
				ctx.Assert(ctx.Gt(x.Get(), sym.Const(0)))
			})
		},
		// saturates at 7
		"EXTI2": func(ctx *engine.Context) {
			ctx.Claim("X", func(x *engine.Cell, ctx *engine.Context) {
				v := ctx.Min(ctx.SaturatingAdd(x.Get(), one), sym.Const(7))
				x.Set(v)
				ctx.Assert(ctx.Gt(v, sym.Const(0)) && ctx.Lt(v, sym.Const(8)))
			})
		},
	}
}

func loopBodies() engine.Bodies {
	return engine.Bodies{
		"T": func(ctx *engine.Context) {
			ctx.Claim("X", func(x *engine.Cell, ctx *engine.Context) {
				n := sym.Const(0)
				if ctx.Lt(x.Get(), sym.Const(10)) {
					for i := uint32(0); ctx.Lt(sym.Const(i), x.Get()); i++ {
						n = ctx.Add(n, one)
					}
				}
				ctx.Claim("Y", func(y *engine.Cell, ctx *engine.Context) {
					y.Set(n)
				})
			})
		},
	}
}

func preemptBodies() engine.Bodies {
	add := func(n uint32, times int) engine.Body {
		return func(ctx *engine.Context) {
			ctx.Claim("X", func(x *engine.Cell, ctx *engine.Context) {
				v := x.Get()
				for i := 0; i < times; i++ {
					v = ctx.WrappingAdd(v, sym.Const(n))
				}
				x.Set(v)
			})
		}
	}
	return engine.Bodies{
		"A": add(1, 3),
		"B": add(10, 1),
		"C": add(100, 1),
	}
}
