//go:build tinygo

// Command testmodule is the source of a fitness plugin. Build it with
//
//	tinygo build -o sphere.wasm -target=wasm-unknown ./interp/wasm/testmodule
//
// and pass the file to the evaluator with dimension 3.
package main

//export fitness
func fitness(x, y, z float64) float64 {
	return x*x + y*y + z*z
}

func main() {}
