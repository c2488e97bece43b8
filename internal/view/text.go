package view

import (
	"fmt"
	"io"
	"strings"
)

// WriteText prints v for a terminal.
func WriteText(w io.Writer, v View) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", v.Title)
	width := 0
	for _, f := range v.Fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range v.Fields {
		fmt.Fprintf(&b, "  %-*s  %s\n", width+1, f.Label+":", f.Value)
	}
	b.WriteString("\n")

	switch {
	case v.SubmitDisabled:
		fmt.Fprintf(&b, "%s\n", v.SubmitLabel)
	case v.Error != "":
		fmt.Fprintf(&b, "Error: %s\n", v.Error)
	case v.Result != nil:
		r := v.Result
		b.WriteString("Prediction Result:\n")
		fmt.Fprintf(&b, "  Heart Disease: %s\n", r.Label)
		fmt.Fprintf(&b, "  Probability of No Heart Disease: %s\n", r.ProbabilityNoHeartDisease)
		fmt.Fprintf(&b, "  Probability of Heart Disease: %s\n", r.ProbabilityHeartDisease)
		fmt.Fprintf(&b, "%s\n", r.Advisory)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
