package events

// ConvertDomainOptions normalizes domain-level publishing options into the
// minimal set of event bus options, dropping empty ones so the bus does not
// overwrite envelope fields with zero values.
func ConvertDomainOptions(domainOpts []PublishOption) []PublishOption {
	dp := ApplyOptions(domainOpts)

	var eventOpts []PublishOption
	if dp.Key != "" {
		eventOpts = append(eventOpts, WithKey(dp.Key))
	}
	if len(dp.Headers) > 0 {
		eventOpts = append(eventOpts, WithHeaders(dp.Headers))
	}

	return eventOpts
}
