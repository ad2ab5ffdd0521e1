// taxsim evaluates tax and transfer rules over household microdata.
//
// It reads one row per individual, resolves the rules needed for the
// requested outputs at a policy date, and writes the computed columns:
//   - Date-dependent rule variants and parameters
//   - Tax unit and household aggregation
//   - Favorability checks between tax schemes
//   - Precedence between mutually exclusive transfers
//
// Usage:
//
//	# Evaluate the default outputs for a CSV file
//	taxsim run --date 2024-01-01 --input persons.csv
//
//	# Show the evaluation order of one output
//	taxsim plan --date 2024-01-01 --targets income_tax_tu
//
//	# List rules and parameters valid at a date
//	taxsim rules --date 2024-01-01
//	taxsim params --date 2024-01-01 --prefix income_tax
//
//	# Delete old stored runs
//	taxsim prune
package main

func main() {
	Execute()
}
