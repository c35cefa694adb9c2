// Package domain models observation retrievals from the data warehouse (DWH)
// and the static descriptors of plottable model variables.
//
// # Retrieval Tool
//
// Observations are fetched by shelling out to the DWH retrieval binary
// (retrieve_cscs). A request renders to a fixed argument list:
//
//	retrieve_cscs --show_records -j <join_cols> -s <surface|profile> \
//	  -i <index_key>,<station> -p <param_codes> -t <start>-<end> \
//	  [-w <window>] [-C <count> | --use-limitation <n>]
//
// Surface requests join lat,lon,name,wmo_ind, index stations by their
// national abbreviation (nat_abbr, e.g. "PAY") and pass --use-limitation 50.
// Profile requests join lat,lon,elev,name,wmo_ind, index by WMO number
// (int_ind, e.g. "06610"), use window 22, request 34 levels and repeat the
// single timestamp as start and end.
//
// Timestamps on the command line and in the termin column are 14-digit UTC
// strings: YYYYMMDDHHMMSS.
//
// # Output Format
//
//	lat lon name termin 1547 1541        <- column names, whitespace separated
//	---------------------------------    <- separator
//	46.81|6.94|Payerne|20210912000000|12.3|10000000
//	...
//	---                                  <- footer (2 lines)
//	24 records
//
// The value 10000000 (1.0e7) is the DWH sentinel for "no value" and is
// mapped to Missing by ParseOutput, as are empty cells.
//
// # Errors
//
// A retrieval fails with exactly one of TimeoutError, ExternalFailureError,
// NoDataError or MalformedOutputError. None of them are retried here; batch
// callers decide whether to retry, skip or abort.
package domain
