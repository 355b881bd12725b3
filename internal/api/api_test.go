package api

import (
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())

	t.Run("round trip", func(t *testing.T) {
		data, err := c.Marshal(&AssignItemRequest{ReceiptID: "r1", ItemID: "i1", Units: 2})
		require.NoError(t, err)
		assert.JSONEq(t, `{"receipt_id":"r1","item_id":"i1","member_id":"","units":2}`, string(data))

		var got AssignItemRequest
		require.NoError(t, c.Unmarshal(data, &got))
		assert.Equal(t, int64(2), got.Units)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var got GetReceiptRequest
		err := c.Unmarshal([]byte(`{"receipt_id":"r1","bogus":true}`), &got)
		assert.Error(t, err)
	})

	t.Run("empty body decodes to zero value", func(t *testing.T) {
		var got ListGroupsRequest
		assert.NoError(t, c.Unmarshal(nil, &got))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     any
		wantErr string
	}{
		{
			name: "valid register",
			msg:  &RegisterRequest{Email: "ana@example.com", DisplayName: "Ana", Password: "hunter22"},
		},
		{
			name:    "missing fields use json names",
			msg:     &RegisterRequest{Email: "not-an-email"},
			wantErr: "validation failed: display_name is required; email must be a valid email; password is required",
		},
		{
			name:    "nested items",
			msg:     &AddItemsRequest{ReceiptID: "r1", Items: []ItemInput{{Name: "", UnitPrice: "1.00"}}},
			wantErr: "validation failed: items[0].name is required",
		},
		{
			name:    "empty item list",
			msg:     &AddItemsRequest{ReceiptID: "r1"},
			wantErr: "validation failed: items is required",
		},
		{
			name:    "units below one",
			msg:     &AssignItemRequest{ReceiptID: "r1", ItemID: "i1"},
			wantErr: "validation failed: units must be at least 1",
		},
		{
			name:    "bad preview mode",
			msg:     &PreviewSplitRequest{Items: []PreviewItem{{ID: "a", Name: "A", UnitPrice: "1", Mode: "weighted"}}},
			wantErr: "validation failed: items[0].mode must be one of [units equal]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.msg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var connectErr *connect.Error
			require.True(t, errors.As(err, &connectErr))
			assert.Equal(t, connect.CodeInvalidArgument, connectErr.Code())
			assert.Equal(t, tt.wantErr, connectErr.Message())
		})
	}
}

func TestImageReadMaxBytes(t *testing.T) {
	assert.Equal(t, 4+64<<10, ImageReadMaxBytes(3))
	assert.Equal(t, 8+64<<10, ImageReadMaxBytes(4))
	assert.Greater(t, ImageReadMaxBytes(10<<20), DefaultReadMaxBytes)
}
