package types

import "time"

// FoodLog represents a single nutrition entry in a user's log.
// Entries are immutable once created and permanently owned by the user
// who recorded them.
type FoodLog struct {
	// ID is the unique identifier of the entry.
	ID string `json:"id" db:"id"`

	// Seq is a monotonically increasing insertion counter used to break
	// ordering ties between entries stamped with the same timestamp.
	Seq int64 `json:"-" db:"seq"`

	// UserID identifies the user who owns this entry.
	UserID string `json:"userId" db:"user_id"`

	// CreatedAt is the server-side timestamp set at insert time.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// FoodName is the name of the logged food. Required, non-empty.
	FoodName string `json:"foodName" db:"food_name"`

	// Calories is the estimated calorie count. Defaults to 0.
	Calories float64 `json:"calories" db:"calories"`

	// Protein is the estimated grams of protein. Defaults to 0.
	Protein float64 `json:"protein" db:"protein"`

	// Carbs is the estimated grams of carbohydrates. Defaults to 0.
	Carbs float64 `json:"carbs" db:"carbs"`

	// Fat is the estimated grams of fat. Defaults to 0.
	Fat float64 `json:"fat" db:"fat"`

	// ImageURL optionally points at the stored photo the entry was
	// derived from. It serializes as null when absent.
	ImageURL *string `json:"imageUrl" db:"image_url"`
}

// Nutrition is the estimate produced by the image-analysis service for a
// single food photo. The server treats the service as an opaque supplier
// of this shape.
type Nutrition struct {
	// FoodName is the food item identified in the image.
	FoodName string `json:"foodName"`

	// Calories is the estimated number of calories.
	Calories float64 `json:"calories"`

	// Protein is the estimated grams of protein.
	Protein float64 `json:"protein"`

	// Carbs is the estimated grams of carbohydrates.
	Carbs float64 `json:"carbs"`

	// Fat is the estimated grams of fat.
	Fat float64 `json:"fat"`
}
