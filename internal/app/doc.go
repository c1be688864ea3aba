// Package app runs pathgrep: it loads the rules, reads paths line by line
// and prints what every rule accepts.
package app
