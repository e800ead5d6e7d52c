package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var errEmptyBody = errors.New("no reader content error")

func Read(reader io.ReadCloser) ([]byte, error) {
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		}
	}()

	content, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))

	if err != nil {
		return nil, err
	} else if len(content) == 0 {
		return nil, errEmptyBody
	}

	return content, nil
}

func ReadJSON[T any](content []byte) (*T, error) {
	var t *T
	err := json.Unmarshal(content, &t)

	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errEmptyBody
	}

	return t, nil
}

const maxBodyBytes = 1 << 20
