package dataset

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader(t *testing.T) {
	t.Run("Valid UTF-8 CSV", func(t *testing.T) {
		csv := "order_id,price\no1,10.00"
		r, err := NewReader(strings.NewReader(csv))

		require.NoError(t, err)
		require.NotNil(t, r)
	})

	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		csv := "\xEF\xBB\xBForder_id,price\no1,10.00"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)

		require.NoError(t, r.ReadHeader())
		assert.Equal(t, "order_id", r.Headers()[0])
	})

	t.Run("Empty file", func(t *testing.T) {
		r, err := NewReader(strings.NewReader(""))

		assert.Nil(t, r)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Invalid encoding", func(t *testing.T) {
		r, err := NewReader(strings.NewReader("order_id\n\xFF\xFE"))

		assert.Nil(t, r)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		csv := "order_id;price\no1;10.00"
		r, err := NewReader(strings.NewReader(csv), WithDelimiter(';'))
		require.NoError(t, err)

		require.NoError(t, r.ReadHeader())
		assert.Equal(t, []string{"order_id", "price"}, r.Headers())
	})

	t.Run("Multibyte content near the check window", func(t *testing.T) {
		// Fill past the 4096-byte encoding check with multibyte runes so the
		// window is guaranteed to cut one of them in half.
		var sb strings.Builder
		sb.WriteString("order_id,name\n")
		for sb.Len() < 5000 {
			sb.WriteString("o1,são-paulo-café\n")
		}
		r, err := NewReader(strings.NewReader(sb.String()))

		require.NoError(t, err)
		require.NotNil(t, r)
	})
}

func TestReadHeader(t *testing.T) {
	t.Run("Header names are trimmed", func(t *testing.T) {
		csv := " order_id , price \no1,10.00"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)

		require.NoError(t, r.ReadHeader())
		assert.Equal(t, []string{"order_id", "price"}, r.Headers())
	})

	t.Run("Missing headers reported", func(t *testing.T) {
		csv := "order_id,price\no1,10.00"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		missing := r.MissingHeaders([]string{"order_id", "customer_unique_id", "order_purchase_timestamp"})
		assert.ElementsMatch(t, []string{"customer_unique_id", "order_purchase_timestamp"}, missing)
	})

	t.Run("No missing headers", func(t *testing.T) {
		csv := "order_id,customer_unique_id\no1,c1"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		assert.Empty(t, r.MissingHeaders([]string{"order_id", "customer_unique_id"}))
	})
}

func TestRead(t *testing.T) {
	t.Run("Fields keyed by header name", func(t *testing.T) {
		csv := "order_id,price,city\no1,10.00,campinas"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		rec, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, 2, rec.LineNumber)
		assert.Equal(t, "o1", rec.Get("order_id"))
		assert.Equal(t, "10.00", rec.Get("price"))
		assert.Equal(t, "campinas", rec.Get("city"))
		assert.Equal(t, "", rec.Get("unknown_column"))
	})

	t.Run("Short rows pad missing fields", func(t *testing.T) {
		csv := "order_id,price,city\no1,10.00"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		rec, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, "o1", rec.Get("order_id"))
		assert.Equal(t, "", rec.Get("city"))
	})

	t.Run("Values are trimmed", func(t *testing.T) {
		csv := "order_id,city\n o1 , campinas \n"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		rec, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, "o1", rec.Get("order_id"))
		assert.Equal(t, "campinas", rec.Get("city"))
	})

	t.Run("EOF at end of data", func(t *testing.T) {
		csv := "order_id\no1"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		_, err = r.Read()
		require.NoError(t, err)

		_, err = r.Read()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("Empty row detection", func(t *testing.T) {
		csv := "order_id,price\n,\no2,5.00"
		r, err := NewReader(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, r.ReadHeader())

		rec, err := r.Read()
		require.NoError(t, err)
		assert.True(t, rec.IsEmpty())

		rec, err = r.Read()
		require.NoError(t, err)
		assert.False(t, rec.IsEmpty())
	})
}
