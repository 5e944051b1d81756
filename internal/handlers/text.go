package handlers

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"devtools-api/middleware/apierror"
)

type textQuery struct {
	Text string `query:"text" validate:"max=100000"`
}

func (h *Handlers) WordCount(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]int{"word_count": len(strings.Fields(q.Text))})
}

type charCountQuery struct {
	Text          string `query:"text" validate:"max=100000"`
	IncludeSpaces bool   `query:"include_spaces" default:"true"`
}

func (h *Handlers) CharCount(w http.ResponseWriter, r *http.Request) error {
	var q charCountQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	text := q.Text
	if !q.IncludeSpaces {
		// só o espaço ASCII, tabs e quebras de linha continuam contando
		text = strings.ReplaceAll(text, " ", "")
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]int{"char_count": utf8.RuneCountInString(text)})
}

func (h *Handlers) Reverse(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{"reversed_text": reverseRunes(q.Text)})
}

type replaceQuery struct {
	Text         string `query:"text" validate:"max=100000"`
	OldSubstring string `query:"old_substring" validate:"max=100000"`
	NewSubstring string `query:"new_substring" validate:"max=100000"`
}

func (h *Handlers) Replace(w http.ResponseWriter, r *http.Request) error {
	var q replaceQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	out := strings.ReplaceAll(q.Text, q.OldSubstring, q.NewSubstring)
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{"replaced_text": out})
}

func (h *Handlers) Capitalize(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	// Caser guarda estado: um por requisição
	out := cases.Title(language.Und).String(q.Text)
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{"capitalized_text": out})
}

func (h *Handlers) Length(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]int{"text_length": utf8.RuneCountInString(q.Text)})
}

func (h *Handlers) Uppercase(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	out := cases.Upper(language.Und).String(q.Text)
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{"uppercase_text": out})
}

func (h *Handlers) Lowercase(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	out := cases.Lower(language.Und).String(q.Text)
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{"lowercase_text": out})
}

func (h *Handlers) Palindrome(w http.ResponseWriter, r *http.Request) error {
	var q textQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]bool{"is_palindrome": isPalindrome(q.Text)})
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// isPalindrome ignora tudo que não for letra ou dígito e não diferencia caixa.
func isPalindrome(s string) bool {
	cleaned := make([]rune, 0, len(s))
	for _, c := range s {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			cleaned = append(cleaned, unicode.ToLower(c))
		}
	}
	for i, j := 0, len(cleaned)-1; i < j; i, j = i+1, j-1 {
		if cleaned[i] != cleaned[j] {
			return false
		}
	}
	return true
}
