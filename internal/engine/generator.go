package engine

import (
	"fmt"
	"strings"
	"time"

	"db-extend/internal/model"

	"github.com/brianvoe/gofakeit/v6"
)

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}

// GenerateValue returns a plausible random value for f, picked by declared
// type and refined by what the column name suggests.
func GenerateValue(f *model.Field) any {
	dataType := strings.ToLower(f.DataType)
	m := meaning(f.Column())

	switch dataType {
	case "string", "varchar", "text":
		return generateText(m, f.Size, dataType == "text")
	case "uuid":
		return gofakeit.UUID()
	case "date", "datetime":
		// Formatted strings, accepted by every driver.
		val := gofakeit.DateRange(time.Now().AddDate(-1, 0, 0), time.Now())
		if dataType == "date" {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case "int", "integer", "bigint", "smallint":
		return generateInt(m, dataType, f.Size)
	case "decimal", "float":
		if hasWord(m, "latitude") {
			return gofakeit.Latitude()
		}
		if hasWord(m, "longitude") {
			return gofakeit.Longitude()
		}
		return gofakeit.Price(0.99, 99.99)
	case "bool", "boolean":
		return gofakeit.Bool()
	case "blob":
		return []byte(gofakeit.LetterN(16))
	}
	return nil
}

func generateText(m string, size int, long bool) string {
	var s string
	switch {
	case hasWord(m, "email", "mail"):
		s = gofakeit.Email()
	case hasWord(m, "phone", "mobile"):
		s = gofakeit.Phone()
	case hasWord(m, "zipcode", "postal"):
		s = gofakeit.Zip()
	case hasWord(m, "street"):
		s = gofakeit.Street()
	case hasWord(m, "address"):
		s = gofakeit.Address().Address
	case hasWord(m, "city"):
		s = gofakeit.City()
	case hasWord(m, "country"):
		s = gofakeit.Country()
	case hasWord(m, "url", "image"):
		s = gofakeit.URL()
	case hasWord(m, "ip"):
		s = gofakeit.IPv4Address()
	case hasWord(m, "yesno", "flag"):
		s = "N"
		if gofakeit.Bool() {
			s = "Y"
		}
	case hasWord(m, "year"):
		s = fmt.Sprintf("%d", gofakeit.Number(2000, 2025))
	case hasWord(m, "color", "colour"):
		s = gofakeit.Color()
	case hasWord(m, "code", "status", "type"):
		s = strings.ToUpper(gofakeit.LetterN(3))
	case hasWord(m, "first"):
		s = gofakeit.FirstName()
	case hasWord(m, "last"):
		s = gofakeit.LastName()
	case hasWord(m, "company", "business"):
		s = gofakeit.Company()
	case hasWord(m, "name", "user"):
		s = gofakeit.Name()
	case hasWord(m, "title", "subject"):
		s = gofakeit.Sentence(3)
	case long || hasWord(m, "description", "message", "text", "note", "comment"):
		s = gofakeit.Sentence(12)
	case size > 0 && size < 20:
		s = gofakeit.Word()
	default:
		s = gofakeit.Sentence(5)
	}
	return truncate(s, size)
}

func generateInt(m, dataType string, size int) int {
	switch {
	case hasWord(m, "yesno", "flag", "active", "enabled"):
		return gofakeit.Number(0, 1)
	case hasWord(m, "year"):
		return gofakeit.Number(2000, 2025)
	case dataType == "smallint":
		return gofakeit.Number(1, 30000)
	}

	maxVal := 50000
	if size > 0 && size < 5 {
		limit := 1
		for i := 0; i < size; i++ {
			limit *= 10
		}
		maxVal = limit - 1
	}
	return gofakeit.Number(1, maxVal)
}
