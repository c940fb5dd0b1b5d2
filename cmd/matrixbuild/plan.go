package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

func plan(w io.Writer, matrix model.Matrix, targets []string) error {
	selected, err := matrix.Select(targets)
	if err != nil {
		return err
	}
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "TARGET\tMODE\tTRIPLE\tTOOLCHAIN\tKEY\tARTIFACT")
	for _, target := range selected {
		steps, err := matrix.Toolchains.StepsFor(target.TargetTriple)
		if err != nil {
			return err
		}
		toolchain := "-"
		if len(steps) > 0 {
			toolchain = strings.Join(steps, "; ")
		}
		fmt.Fprintf(table, "%v\t%v\t%v\t%v\t%v\t%v\n",
			target.Name,
			target.ExecutionMode(),
			target.TargetTriple,
			toolchain,
			target.StorageName(),
			target.ArtifactPattern(matrix.AppName, matrix.ArtifactExtension),
		)
	}
	return table.Flush()
}
