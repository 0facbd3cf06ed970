// Package web serves the kvm-manager control panel.
//
// Every page is rendered from a fresh script invocation; the server keeps
// no VM state of its own. Form submissions run one script action and
// answer with a 303 redirect. The tail of the script's output travels to
// the next page in a one-shot cookie, so any number of server processes
// can sit behind the same address.
package web
