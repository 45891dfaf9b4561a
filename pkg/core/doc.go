// Package core is a small, stable facade over phpguard's scanning engine for
// programs that want to embed the checks without importing internal packages.
//
// Example:
//
//	res, err := core.Scan(ctx, core.Config{Root: "./my-plugin"})
//	if err != nil { /* handle */ }
//	_ = core.MarshalResult(os.Stdout, res.ScanResult)
package core
