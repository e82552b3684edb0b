// Package sanitizer normalizes contact data received from the barbershop API
// before it is shown to operators.
//
// All functions are idempotent and never fail: input that cannot be
// normalized yields an empty string.
//
// Normalization includes:
//   - Phone numbers: E.164 (+[country][number]), Brazil as default region
//   - Names: collapse whitespace, trim leading/trailing spaces
package sanitizer
