// Package downloaders holds output parsers for external download tools.
package downloaders
