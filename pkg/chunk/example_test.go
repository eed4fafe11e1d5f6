package chunk_test

import (
	"os"

	"ember/pkg/chunk"
	"ember/pkg/compiler"
)

func ExampleDisassemble() {
	fn, err := compiler.New().Compile("assert 2 * 3 == 6\n7 // 2")
	if err != nil {
		panic(err)
	}
	chunk.Disassemble(os.Stdout, fn)
	// Output:
	// == <script> (arity=0) ==
	// Constants (5):
	//   [0] INTEGER 2
	//   [1] INTEGER 3
	//   [2] INTEGER 6
	//   [3] INTEGER 7
	//   [4] INTEGER 2
	// Instructions (15 units):
	// 0000    1 OpConstant 0 (2)
	// 0002    | OpConstant 1 (3)
	// 0004    | OpMultiply
	// 0005    | OpConstant 2 (6)
	// 0007    | OpValueEqual
	// 0008    | OpAssert
	// 0009    2 OpConstant 3 (7)
	// 0011    | OpConstant 4 (2)
	// 0013    | OpIntDivide
	// 0014    | OpReturn
}
