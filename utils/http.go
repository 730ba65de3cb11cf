package utils

import (
	"net/http"
	"time"
)

// C2ResultsClient fetches workout pages from the Concept2 logbook. The
// timeout is deliberately tight: a slow logbook should not hold a member's
// request hostage.
var C2ResultsClient = &http.Client{
	Timeout: 3 * time.Second,
}

// C2OAuthClient talks to the Concept2 token endpoint.
var C2OAuthClient = &http.Client{
	Timeout: 10 * time.Second,
}
