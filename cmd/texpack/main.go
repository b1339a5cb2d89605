// Command texpack packs channels of up to four images into one texture.
//
// Usage:
//
//	texpack pack --r rough.png:r --g ao.png:g:invert --b-white --a mask.exr:a:0.5 \
//		--resolution 1000 --pot --format rgba32 --out packed.png
//	texpack formats
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "texpack:", err)
		os.Exit(1)
	}
}
