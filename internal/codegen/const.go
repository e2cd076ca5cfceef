package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// i32 and i64 build small integer index constants, used pervasively by GEP
// sites (struct/array field and element addressing).
func i32(v int64) *constant.Int { return constant.NewInt(types.I32, v) }
func i64(v int64) *constant.Int { return constant.NewInt(types.I64, v) }
