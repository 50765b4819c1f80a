// Package scopes is the Go SDK for writing search scopes.
//
// A scope implements Scope and hands itself to Run from its main function:
//
//	func main() {
//		if err := scopes.Run(&MyScope{}); err != nil {
//			log.Fatalln(err)
//		}
//	}
//
// Run parses --runtime and --scope from the command line and serves requests
// from the harness over stdin and stdout (see package protocol). Search and
// Preview are called on their own goroutines; the context passed to them is
// cancelled when the harness cancels the request or the session ends.
package scopes
