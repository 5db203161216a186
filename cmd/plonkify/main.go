// Command plonkify compiles an R1CS file and a witness file into a
// Plonkish circuit, verifies it, and reports the result. It is a thin
// driver over the r1cs, gate, compiler/vanilla, compiler/general, and
// circuit packages: all of the actual plonkification logic lives there.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
