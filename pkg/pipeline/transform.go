package pipeline

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slicertools/profshift/pkg/profile"
)

const (
	fieldCustomDefined      = "is_custom_defined"
	fieldInstantiation      = "instantiation"
	fieldCompatiblePrinters = "compatible_printers"
	fieldCompatibleCond     = "compatible_printers_condition"
	fieldMultiBedTypes      = "support_multi_bed_types"
)

var (
	// nozzleRe extracts the nozzle diameter from filenames like
	// "PLA @Kobra 3 0.4 nozzle.json".
	nozzleRe = regexp.MustCompile(`(?i)(\d+\.\d+) nozzle`)

	// printerNameRe extracts the printer model from the same filenames,
	// dropping any leading "material @" part.
	printerNameRe = regexp.MustCompile(`(?i)(?:.*@)?\s*(.*?)\s*\d+\.\d+\s*nozzle`)
)

// ApplyVendorTransforms rewrites a resolved vendor profile into the form
// the target slicer expects as a user preset. The name is the source
// filename, used to derive the printer compatibility condition.
func ApplyVendorTransforms(doc *profile.Document, name string) {
	doc.Set(fieldCustomDefined, "0")
	doc.Set(fieldInstantiation, "true")
	doc.Delete(fieldCompatiblePrinters)

	setCompatibleCondition(doc, name)

	if doc.Has(fieldMultiBedTypes) {
		doc.Set(fieldMultiBedTypes, "1")
	}
}

// setCompatibleCondition fills an empty compatible_printers_condition field
// from the printer model and nozzle diameter encoded in the filename. The
// field is never added, and existing values are left alone.
func setCompatibleCondition(doc *profile.Document, name string) {
	existing, ok := doc.Get(fieldCompatibleCond)
	if !ok {
		return
	}

	if s, _ := existing.(string); s != "" {
		slog.Warn("compatible_printers_condition already set",
			slog.String("file", name),
			slog.String("value", s),
		)

		return
	}

	nozzleMatch := nozzleRe.FindStringSubmatch(name)
	if nozzleMatch == nil {
		slog.Warn("no nozzle diameter in filename, leaving compatible_printers_condition empty",
			slog.String("file", name),
		)

		return
	}

	printerMatch := printerNameRe.FindStringSubmatch(name)
	if printerMatch == nil {
		slog.Warn("could not extract printer name from filename",
			slog.String("file", name),
		)

		return
	}

	printerName := strings.TrimSpace(printerMatch[1])
	condition := fmt.Sprintf(`printer_model==\"%s\" and nozzle_diameter[0]==%s`,
		printerName, nozzleMatch[1])

	doc.Set(fieldCompatibleCond, condition)

	slog.Debug("set compatible_printers_condition",
		slog.String("file", name),
		slog.String("condition", condition),
	)
}
