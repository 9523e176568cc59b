package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// customerListKeys - поля-обертки, в которых backend может вернуть список клиентов
var customerListKeys = []string{"data", "customers", "items"}

// DecodeCustomerList разбирает JSON список клиентов.
// Принимает голый массив или объект с массивом в "data", "customers" или "items".
// Элементы, которые не являются объектами, пропускаются; их число возвращается вторым значением.
func DecodeCustomerList(body []byte) ([]CustomerRecord, int, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		var envelope map[string]json.RawMessage
		if envErr := json.Unmarshal(body, &envelope); envErr != nil {
			return nil, 0, err
		}

		found := false
		for _, key := range customerListKeys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &entries); err != nil {
				return nil, 0, fmt.Errorf("field %q is not an array: %w", key, err)
			}
			found = true
			break
		}
		if !found {
			return nil, 0, errors.New("response contains no customer list")
		}
	}

	records := make([]CustomerRecord, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		var record CustomerRecord
		if bytes.Equal(bytes.TrimSpace(entry), []byte("null")) {
			skipped++
			continue
		}
		if err := json.Unmarshal(entry, &record); err != nil {
			skipped++
			continue
		}
		records = append(records, record)
	}

	return records, skipped, nil
}
