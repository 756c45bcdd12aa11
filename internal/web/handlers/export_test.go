package handlers

// StatusResponse exposes statusResponse to external test packages.
type StatusResponse = statusResponse
