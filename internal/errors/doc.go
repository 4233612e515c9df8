// Package errors provides coded, actionable errors for the vango-stream
// command line and configuration loader.
//
// Each code maps to a category, a short message, and optionally a longer
// explanation and a fix hint:
//
//   - E1xx: configuration (vango-stream.json)
//   - E2xx: rendering
//   - E3xx: archive stores
//
// # Usage
//
//	err := errors.New(errors.ErrConfigSyntax).
//	    WithLocation("vango-stream.json", 7, 3).
//	    Wrap(jsonErr)
//
//	errors.PrintError(err)
//	// ERROR E103: Invalid JSON in config file
//	//
//	//   vango-stream.json:7:3
//	//
//	//        5 │   "server": {
//	//        6 │     "port": 8080,
//	//     →  7 │   },
//	//          │   ^
//	//
//	//   Hint: Check for trailing commas and unquoted keys.
package errors
