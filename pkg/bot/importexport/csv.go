package importexport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/srs"
	"gorm.io/gorm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const maxDelimiterSampleRecords = 20

// ParseFlashcardCSV reads subject,front,back rows. Two-column rows are
// front,back and take defaultSubject; they are skipped when it is empty.
func ParseFlashcardCSV(data []byte, defaultSubject string) ([]srs.CardInput, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delimiter := detectCSVDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	var cards []srs.CardInput
	skipped := 0
	checkedHeader := false
	defaultSubject = strings.TrimSpace(defaultSubject)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if isEmptyCSVRecord(record) {
			skipped++
			continue
		}
		if !checkedHeader {
			checkedHeader = true
			if isHeaderRecord(record) {
				continue
			}
		}

		var in srs.CardInput
		switch {
		case len(record) >= 3:
			in = srs.CardInput{Subject: record[0], Front: record[1], Back: record[2]}
		case len(record) == 2 && defaultSubject != "":
			in = srs.CardInput{Subject: defaultSubject, Front: record[0], Back: record[1]}
		default:
			skipped++
			continue
		}
		if err := in.Validate(); err != nil {
			skipped++
			continue
		}
		cards = append(cards, srs.CardInput{
			Subject: strings.TrimSpace(in.Subject),
			Front:   strings.TrimSpace(in.Front),
			Back:    strings.TrimSpace(in.Back),
		})
	}

	return cards, skipped, nil
}

func detectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', '\t', ';'}
	bestDelimiter := candidates[0]
	bestScore := -1

	for _, delimiter := range candidates {
		score, err := scoreDelimiter(data, delimiter, maxDelimiterSampleRecords)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestDelimiter = delimiter
		}
	}

	if bestScore <= 0 {
		return ','
	}
	return bestDelimiter
}

// scoreDelimiter counts the most common multi-field row width.
func scoreDelimiter(data []byte, delimiter rune, maxRecords int) (int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	counts := make(map[int]int)
	recordsSeen := 0

	for recordsSeen < maxRecords {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if isEmptyCSVRecord(record) {
			continue
		}
		recordsSeen++

		if len(record) < 2 {
			continue
		}
		counts[len(record)]++
	}

	best := 0
	for _, score := range counts {
		if score > best {
			best = score
		}
	}
	return best, nil
}

func isEmptyCSVRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

var headerWords = map[string]struct{}{
	"subject":  {},
	"front":    {},
	"back":     {},
	"question": {},
	"answer":   {},
}

func isHeaderRecord(record []string) bool {
	if len(record) < 2 {
		return false
	}
	for _, field := range record[:2] {
		if _, ok := headerWords[strings.ToLower(strings.TrimSpace(field))]; !ok {
			return false
		}
	}
	return true
}

// UpsertFlashcards inserts new cards and rewrites the back of cards that
// already exist with the same subject and front. Schedules of existing cards
// are left alone.
func UpsertFlashcards(userID int64, cards []srs.CardInput, now time.Time) (int, int, error) {
	inserted := 0
	updated := 0

	if len(cards) == 0 {
		return inserted, updated, nil
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		for _, in := range cards {
			result := tx.Model(&db.Flashcard{}).
				Where("user_id = ? AND subject = ? AND front = ?", userID, in.Subject, in.Front).
				Update("back", in.Back)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				updated++
				continue
			}

			card, err := srs.NewCard(userID, in, now)
			if err != nil {
				return err
			}
			if err := tx.Create(&card).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}

// LoadCardsForExport returns every card of the user in export order.
func LoadCardsForExport(userID int64) ([]db.Flashcard, error) {
	var cards []db.Flashcard
	if err := db.DB.Where("user_id = ?", userID).Find(&cards).Error; err != nil {
		return nil, err
	}
	SortCardsForExport(cards)
	return cards, nil
}

func BuildExportCSV(cards []db.Flashcard) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(utf8BOM); err != nil {
		return nil, err
	}

	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true

	if err := writer.Write([]string{"subject", "front", "back"}); err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := writer.Write([]string{card.Subject, card.Front, card.Back}); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("flashcards-%s.csv", now.Format("20060102"))
}

func SortCardsForExport(cards []db.Flashcard) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Subject != cards[j].Subject {
			return cards[i].Subject < cards[j].Subject
		}
		if cards[i].Front != cards[j].Front {
			return cards[i].Front < cards[j].Front
		}
		return cards[i].ID < cards[j].ID
	})
}
