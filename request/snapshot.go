package request

// snapshot builds the sanitized echo of the request attached to both a
// successful Response and a failed Error, with every configured secret
// redacted from both the original data and the formatted body text.
func (d *Descriptor) snapshot(finalURL string, body *formattedBody) Snapshot {
	var formatted string
	switch {
	case body == nil:
		formatted = ""
	case body.isBinary:
		formatted = "[BINARY]"
	case body.isStream:
		formatted = "[STREAM]"
	default:
		formatted = redactFormattedText(body.text, d.DataType, d.HideSecrets)
	}

	return Snapshot{
		Method:        d.method(),
		URL:           finalURL,
		Timeout:       d.Timeout,
		DataType:      d.DataType,
		Data:          redactRawData(d.Data, d.HideSecrets),
		FormattedData: formatted,
		Headers:       cloneHeaders(d.Headers),
		Cookies:       append([]string{}, d.ExplicitCookies...),
	}
}

// decorate attaches a sanitized snapshot to err, the final step every Do
// failure path runs through before returning.
func (d *Descriptor) decorate(err *Error, finalURL string, body *formattedBody) *Error {
	if err == nil {
		return nil
	}
	snap := d.snapshot(finalURL, body)
	err.Snapshot = &snap
	return err
}
