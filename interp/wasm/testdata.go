package wasm

// sphere2Module exports (func $fitness (param f64 f64) (result f64)) returning
// x*x + y*y.
var sphere2Module = []byte{
	0x00, 0x61, 0x73, 0x6d, // WASM_BINARY_MAGIC
	0x01, 0x00, 0x00, 0x00, // WASM_BINARY_VERSION
	// Type section
	0x01, 0x07, // section id, section size (7 bytes)
	0x01,                               // number of types
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c, // (func (param f64 f64) (result f64))
	// Function section
	0x03, 0x02, // section id, section size
	0x01, // number of functions
	0x00, // function 0, type 0
	// Export section
	0x07, 0x0b, // section id, section size (11 bytes)
	0x01,                                           // number of exports
	0x07, 0x66, 0x69, 0x74, 0x6e, 0x65, 0x73, 0x73, // "fitness"
	0x00, 0x00, // func index 0
	// Code section
	0x0a, 0x0f, // section id, section size (15 bytes)
	0x01,       // number of functions
	0x0d,       // function body size (13 bytes)
	0x00,       // number of local declarations
	0x20, 0x00, // local.get 0
	0x20, 0x00, // local.get 0
	0xa2,       // f64.mul
	0x20, 0x01, // local.get 1
	0x20, 0x01, // local.get 1
	0xa2, // f64.mul
	0xa0, // f64.add
	0x0b, // end
}

// solveModule exports (func $solve (param i32 i32) (result i32 i32)) and no
// fitness function.
var solveModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // WASM_BINARY_MAGIC
	0x01, 0x00, 0x00, 0x00, // WASM_BINARY_VERSION
	// Type section
	0x01, 0x08, // section id, section size (8 bytes)
	0x01,                                     // number of types
	0x60, 0x02, 0x7f, 0x7f, 0x02, 0x7f, 0x7f, // (func (param i32 i32) (result i32 i32))
	// Function section
	0x03, 0x02, // section id, section size
	0x01, // number of functions
	0x00, // function 0, type 0
	// Memory section
	0x05, 0x03, // section id, section size
	0x01,       // number of memories
	0x00, 0x01, // memory 0: min=1 page
	// Export section
	0x07, 0x12, // section id, section size (18 bytes)
	0x02,                                                 // number of exports
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, // export "memory"
	0x05, 0x73, 0x6f, 0x6c, 0x76, 0x65, 0x00, 0x00, // export "solve"
	// Code section
	0x0a, 0x08, // section id, section size (8 bytes)
	0x01,       // number of functions
	0x06,       // function body size (6 bytes)
	0x00,       // number of local declarations
	0x20, 0x00, // local.get 0
	0x20, 0x01, // local.get 1
	0x0b, // end
}

// Sphere2Module returns a two-dimensional sphere fitness module.
func Sphere2Module() []byte {
	return sphere2Module
}
