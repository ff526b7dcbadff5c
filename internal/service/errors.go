package service

import "strings"

// FailureCategory is the user-facing classification of an analysis failure.
type FailureCategory string

const (
	FailureConfiguration FailureCategory = "configuration"
	FailureConnectivity  FailureCategory = "connectivity"
	FailureGeneric       FailureCategory = "generic"
)

var configurationIndicators = []string{
	"api key",
	"apikey",
	"credential",
	"authentication",
	"unauthorized",
	"permission",
	"401",
	"403",
}

var connectivityIndicators = []string{
	"network",
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"dial tcp",
	"unreachable",
	"503",
}

// ClassifyFailure maps an analysis error to a category and a user-readable
// message. Classification is best-effort substring matching on the error
// text and degrades to the generic category, passing the message through.
func ClassifyFailure(err error) (FailureCategory, string) {
	if err == nil {
		return FailureGeneric, "Something went wrong. Please try again."
	}

	text := strings.ToLower(err.Error())

	for _, ind := range configurationIndicators {
		if strings.Contains(text, ind) {
			return FailureConfiguration, "The analysis service is not configured correctly. Please check the service credentials."
		}
	}

	for _, ind := range connectivityIndicators {
		if strings.Contains(text, ind) {
			return FailureConnectivity, "Could not reach the analysis service. Please check your connection and try again."
		}
	}

	return FailureGeneric, err.Error()
}
