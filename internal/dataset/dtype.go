package dataset

import (
	"strconv"
	"strings"
)

// elements returns the product of a decoded JSON shape. Scalars have one
// element.
func elements(shape any) int64 {
	dims, ok := shape.([]any)
	if !ok {
		return 0
	}
	n := int64(1)
	for _, d := range dims {
		f, ok := d.(float64)
		if !ok || f < 0 {
			return 0
		}
		n *= int64(f)
	}
	return n
}

// itemSizeV2 returns the byte width of a numpy dtype string such as "<f8",
// "|S16" or "<M8[ns]". Structured dtypes report zero.
func itemSizeV2(dtype any) int64 {
	s, ok := dtype.(string)
	if !ok {
		return 0
	}
	s = strings.TrimLeft(s, "<>|=")
	if len(s) < 2 {
		return 0
	}
	kind, width := s[0], s[1:]
	if i := strings.IndexByte(width, '['); i >= 0 {
		width = width[:i]
	}
	n, err := strconv.ParseInt(width, 10, 64)
	if err != nil {
		return 0
	}
	if kind == 'U' {
		return n * 4
	}
	return n
}

var v3Sizes = map[string]int64{
	"bool": 1, "int8": 1, "uint8": 1,
	"int16": 2, "uint16": 2, "float16": 2,
	"int32": 4, "uint32": 4, "float32": 4,
	"int64": 8, "uint64": 8, "float64": 8, "complex64": 8,
	"complex128": 16,
}

func itemSizeV3(dtype any) int64 {
	s, ok := dtype.(string)
	if !ok {
		return 0
	}
	return v3Sizes[s]
}
