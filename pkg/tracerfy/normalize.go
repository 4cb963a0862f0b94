package tracerfy

import (
	"encoding/json"
	"strings"
)

// rawResult mirrors the heterogeneous payload shapes Tracerfy returns.
// Phones arrive under "phones" or "phone_numbers" as plain strings or
// objects; emails under "emails" or "email_addresses" as strings or objects
// keyed "email" or "address". All of that is flattened here, once, at the
// client boundary.
type rawResult struct {
	Phones         json.RawMessage `json:"phones"`
	PhoneNumbers   json.RawMessage `json:"phone_numbers"`
	Emails         json.RawMessage `json:"emails"`
	EmailAddresses json.RawMessage `json:"email_addresses"`
}

type rawPhone struct {
	Number string `json:"number"`
	Phone  string `json:"phone"`
	Type   string `json:"type"`
}

type rawEmail struct {
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (rr rawResult) normalize() Result {
	var res Result

	phoneField := rr.Phones
	if len(phoneField) == 0 {
		phoneField = rr.PhoneNumbers
	}
	res.Phones = dedupePhones(parsePhones(phoneField))

	emailField := rr.Emails
	if len(emailField) == 0 {
		emailField = rr.EmailAddresses
	}
	res.Emails = dedupeStrings(parseEmails(emailField))

	return res
}

func parsePhones(raw json.RawMessage) []Phone {
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var phones []Phone
	for _, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if s != "" {
				phones = append(phones, Phone{Number: s, LineType: "Unknown"})
			}
			continue
		}

		var p rawPhone
		if err := json.Unmarshal(entry, &p); err != nil {
			continue
		}
		number := p.Number
		if number == "" {
			number = p.Phone
		}
		if number == "" {
			continue
		}
		phones = append(phones, Phone{Number: number, LineType: normalizeLineType(p.Type)})
	}
	return phones
}

func parseEmails(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var emails []string
	for _, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if s != "" {
				emails = append(emails, s)
			}
			continue
		}

		var e rawEmail
		if err := json.Unmarshal(entry, &e); err != nil {
			continue
		}
		addr := e.Email
		if addr == "" {
			addr = e.Address
		}
		if addr != "" {
			emails = append(emails, addr)
		}
	}
	return emails
}

func normalizeLineType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "mobile", "cell", "wireless":
		return "Mobile"
	case "landline", "fixed", "fixedline":
		return "Landline"
	case "voip":
		return "VoIP"
	default:
		return "Unknown"
	}
}

func dedupePhones(phones []Phone) []Phone {
	seen := make(map[string]bool, len(phones))
	out := phones[:0]
	for _, p := range phones {
		if seen[p.Number] {
			continue
		}
		seen[p.Number] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dedupeStrings(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := ss[:0]
	for _, s := range ss {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
