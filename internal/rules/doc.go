// Package rules evaluates the platform predicates that gate libraries, natives and launch arguments.
//
// A [Rule] matches a [Platform] when its os name, os version pattern, architecture, install side and
// feature flags all hold. An allow rule yields the match; a disallow rule yields its negation. A list of
// rules is the logical AND of its members, and an empty list is always valid.
//
// Version manifests spell operating systems and architectures the way the JVM does ("osx", "x86"),
// so [Current] translates the Go runtime values before any comparison.
package rules
