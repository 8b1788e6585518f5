package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rec(slot int, x Expr) *Record { return &Record{Slot: slot, X: x} }

func ref(n string) *Var { return &Var{Name: n} }

func TestFormatColumns(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expr
		wantText string
		want     map[int]int
	}{
		{
			name: "method call compared to a literal",
			expr: rec(0, &Binary{Op: "==",
				X: rec(1, &MethodCall{Recv: rec(2, ref("numbers")), Name: "sum"}),
				Y: rec(3, &Const{Value: int64(7)}),
			}),
			wantText: "numbers.sum() == 7",
			want:     map[int]int{0: 14, 1: 8, 2: 0, 3: 17},
		},
		{
			name: "repeated operands keep their own columns",
			expr: rec(0, &Binary{Op: "==",
				X: rec(1, &Binary{Op: "+", X: rec(2, ref("x")), Y: rec(3, ref("x"))}),
				Y: rec(4, &Binary{Op: "*", X: rec(5, ref("x")), Y: rec(6, &Const{Value: int64(3)})}),
			}),
			wantText: "x + x == x * 3",
			want:     map[int]int{0: 6, 1: 2, 2: 0, 3: 4, 4: 11, 5: 9, 6: 13},
		},
		{
			name: "parenthesized operand",
			expr: rec(0, &Binary{Op: "*",
				X: rec(1, &Binary{Op: "+", X: rec(2, ref("a")), Y: rec(3, ref("b"))}),
				Y: rec(4, ref("c")),
			}),
			wantText: "(a + b) * c",
			want:     map[int]int{0: 8, 1: 3, 2: 1, 3: 5, 4: 10},
		},
		{
			name:     "property",
			expr:     rec(0, &Property{X: rec(1, ref("stack")), Name: "size"}),
			wantText: "stack.size",
			want:     map[int]int{0: 6, 1: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, columns := FormatColumns(tt.expr)

			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantText, Format(tt.expr))
			assert.Equal(t, tt.want, columns)
		})
	}
}
