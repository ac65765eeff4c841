// Command savegame inspects and exports chunk-based savegame files.
//
//	savegame dump autosave.sav --chunk LGRP
//	savegame chunks autosave.sav
//	savegame export autosave.sav --out ./exports --codec parquet --compress zstd
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}
