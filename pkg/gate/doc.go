// Package gate is the request-time enforcement layer. Every check returns a
// Decision; denials always carry a feature key, a human readable message,
// usage numbers for counted features and an upgrade hint built from the tier
// catalog.
//
//	d := g.Check(ac, gate.FeaturePDFExport)
//	if err := d.Err(); err != nil {
//		return err // *gate.DenialError
//	}
//	// export, then increment the counter
//
// Checking a feature the gate does not know is a programming error and
// panics. Use ParseFeature for untrusted input.
package gate
