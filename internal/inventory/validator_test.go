package inventory_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("valid inventory", func(t *testing.T) {
		// given
		raw := `[
			{"id":"A","name":"Mesa","category":"Muebles","price":10,"stock":5,"image":"/a.png","color":"roble"},
			{"id":"B","name":"Silla","category":"Muebles","price":20.5,"stock":0}
		]`

		// when
		products, err := inventory.Validate([]byte(raw))

		// then
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "A", products[0].ID)
		assert.Equal(t, "/a.png", products[0].Image)
		assert.JSONEq(t, `"roble"`, string(products[0].Extra["color"]))
		assert.Equal(t, 20.5, products[1].Price)
		assert.Equal(t, 0, products[1].Stock)
	})

	t.Run("empty array is valid", func(t *testing.T) {
		products, err := inventory.Validate([]byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("malformed json carries a snippet", func(t *testing.T) {
		// given
		raw := `[{"id":"A",` + strings.Repeat("x", 500)

		// when
		_, err := inventory.Validate([]byte(raw))

		// then
		var malformed *inventory.MalformedJSONError
		require.ErrorAs(t, err, &malformed)
		assert.Len(t, malformed.Snippet, 200)
		assert.True(t, strings.HasPrefix(malformed.Snippet, `[{"id":"A",`))
	})

	t.Run("top level object is not an array", func(t *testing.T) {
		_, err := inventory.Validate([]byte(`{"products":[]}`))

		var notArray *inventory.NotAnArrayError
		require.ErrorAs(t, err, &notArray)
		assert.Equal(t, "object", notArray.Found)
	})

	t.Run("top level scalar is not an array", func(t *testing.T) {
		_, err := inventory.Validate([]byte(`42`))

		var notArray *inventory.NotAnArrayError
		require.ErrorAs(t, err, &notArray)
		assert.Equal(t, "number", notArray.Found)
	})

	t.Run("single missing stock fails the whole batch", func(t *testing.T) {
		// given
		raw := `[
			{"id":"A","name":"Mesa","category":"Muebles","price":10,"stock":5},
			{"id":"B","name":"Silla","category":"Muebles","price":20},
			{"id":"C","name":"Banco","category":"Muebles","price":30,"stock":1}
		]`

		// when
		products, err := inventory.Validate([]byte(raw))

		// then
		assert.Nil(t, products)
		var errs inventory.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 1)
		assert.Equal(t, 2, errs[0].Index)
		assert.Equal(t, "stock", errs[0].Field)
		assert.Equal(t, "Silla", errs[0].Name)
	})

	t.Run("collects every missing and null field", func(t *testing.T) {
		// given
		raw := `[
			{"name":null,"category":"Muebles","price":10,"stock":5},
			{"id":"B","name":"Silla","category":null,"price":null,"stock":1}
		]`

		// when
		_, err := inventory.Validate([]byte(raw))

		// then
		var errs inventory.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 4)
		assert.Equal(t, inventory.FieldError{Index: 1, Field: "id", Reason: "is missing or empty"}, errs[0])
		assert.Equal(t, "name", errs[1].Field)
		assert.Equal(t, 2, errs[2].Index)
		assert.Equal(t, "category", errs[2].Field)
		assert.Equal(t, "price", errs[3].Field)
		assert.Contains(t, errs[0].Error(), "product 1 (unnamed)")
	})

	t.Run("wrong typed field is reported", func(t *testing.T) {
		_, err := inventory.Validate([]byte(`[{"id":"A","name":"Mesa","category":"Muebles","price":"10","stock":5}]`))

		var errs inventory.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 1)
		assert.Equal(t, "price", errs[0].Field)
		assert.Equal(t, "has an invalid type", errs[0].Reason)
	})

	t.Run("non string image and description pass through", func(t *testing.T) {
		// given
		raw := `[
			{"id":"A","name":"Mesa","category":"Muebles","price":10,"stock":5,"image":5},
			{"id":"B","name":"Silla","category":"Muebles","price":20,"stock":1,"description":{"html":"<b>x</b>"}}
		]`

		// when
		products, err := inventory.Validate([]byte(raw))

		// then
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Empty(t, products[0].Image)
		data, err := json.Marshal(products)
		require.NoError(t, err)
		assert.JSONEq(t, `[
			{"id":"A","name":"Mesa","category":"Muebles","price":10,"stock":5,"image":5,"description":""},
			{"id":"B","name":"Silla","category":"Muebles","price":20,"stock":1,"image":"","description":{"html":"<b>x</b>"}}
		]`, string(data))
	})

	t.Run("out of range stock is reported", func(t *testing.T) {
		_, err := inventory.Validate([]byte(`[{"id":"A","name":"Mesa","category":"Muebles","price":10,"stock":1e20}]`))

		var errs inventory.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 1)
		assert.Equal(t, "stock", errs[0].Field)
		assert.Equal(t, "has an invalid type", errs[0].Reason)
	})

	t.Run("leading byte order mark is ignored", func(t *testing.T) {
		// given
		raw := "\xEF\xBB\xBF" + `[{"id":"A","name":"Mesa","category":"Muebles","price":10,"stock":5}]`

		// when
		products, err := inventory.Validate([]byte(raw))

		// then
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "A", products[0].ID)
	})

	t.Run("non object element is reported", func(t *testing.T) {
		_, err := inventory.Validate([]byte(`[1]`))

		var errs inventory.ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "is not an object", errs[0].Reason)
	})

	t.Run("duplicate and empty ids are reported", func(t *testing.T) {
		raw := `[
			{"id":"A","name":"Mesa","category":"Muebles","price":1,"stock":1},
			{"id":"A","name":"Mesa 2","category":"Muebles","price":1,"stock":1},
			{"id":"","name":"Banco","category":"Muebles","price":1,"stock":1}
		]`

		_, err := inventory.Validate([]byte(raw))

		var errs inventory.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 2)
		assert.Equal(t, 2, errs[0].Index)
		assert.Equal(t, "duplicates product 1", errs[0].Reason)
		assert.Equal(t, 3, errs[1].Index)
		assert.Equal(t, "must not be empty", errs[1].Reason)
	})

	t.Run("validation errors are validation errors", func(t *testing.T) {
		_, err := inventory.Validate([]byte(`[{}]`))
		assert.True(t, inventory.IsValidationError(err))
	})
}
