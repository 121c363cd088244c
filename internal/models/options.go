package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Body snippet units.
const (
	BodyUnitCharacters = "characters"
	BodyUnitWords      = "words"
	BodyUnitLines      = "lines"
)

// Date segment positions.
const (
	DatePositionPrepend = "prepend"
	DatePositionAppend  = "append"
)

// Emoji positions relative to the date segment and title.
const (
	EmojiBeforeDate = "beforeDate"
	EmojiAfterDate  = "afterDate"
	EmojiAfterTitle = "afterTitle"
)

// Tag rendering styles.
const (
	TagHandlingLinks   = "links"
	TagHandlingHash    = "hash"
	TagHandlingAtLinks = "atlinks"
)

// Checklist rendering styles.
const (
	CheckboxMarkdown = "markdown"
	CheckboxHyphen   = "hyphen"
	CheckboxBullet   = "bullet"
	CheckboxNumbered = "numbered"
)

// NamingOptions controls how output filenames are built. The value is
// immutable for the duration of a conversion run.
//
// UseSerial only takes effect when UseDate is true: serial numbers are
// assigned in chronological order, which requires the date-driven sort.
// When UseDate is false the builder silently ignores UseSerial.
type NamingOptions struct {
	UseTitle      bool   `yaml:"use_title" json:"useTitle"`
	UseBody       bool   `yaml:"use_body" json:"useBody"`
	BodyLength    int    `yaml:"body_length" json:"bodyLength"`
	BodyUnit      string `yaml:"body_unit" json:"bodyUnit"`
	UseDate       bool   `yaml:"use_date" json:"useDate"`
	DateFormat    string `yaml:"date_format" json:"dateFormat"`
	UseTime       bool   `yaml:"use_time" json:"useTime"`
	TimeFormat    string `yaml:"time_format" json:"timeFormat"`
	DatePosition  string `yaml:"date_position" json:"datePosition"`
	UseSerial     bool   `yaml:"use_serial" json:"useSerial"`
	SerialPadding string `yaml:"serial_padding" json:"serialPadding"`
	UseEmoji      bool   `yaml:"use_emoji" json:"useEmoji"`
	SelectedEmoji string `yaml:"selected_emoji" json:"selectedEmoji"`
	EmojiPosition string `yaml:"emoji_position" json:"emojiPosition"`
	FillerText    string `yaml:"filler_text" json:"fillerText"`
}

// Validate validates the naming options.
func (o NamingOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.BodyLength, validation.Required, validation.Min(1)),
		validation.Field(&o.BodyUnit, validation.Required,
			validation.In(BodyUnitCharacters, BodyUnitWords, BodyUnitLines)),
		validation.Field(&o.DateFormat, validation.Required.When(o.UseDate)),
		validation.Field(&o.TimeFormat, validation.Required.When(o.UseTime)),
		validation.Field(&o.DatePosition, validation.Required,
			validation.In(DatePositionPrepend, DatePositionAppend)),
		validation.Field(&o.SerialPadding, validation.Required,
			validation.In("1", "01", "001", "0001")),
		validation.Field(&o.SelectedEmoji, validation.Required.When(o.UseEmoji)),
		validation.Field(&o.EmojiPosition, validation.Required,
			validation.In(EmojiBeforeDate, EmojiAfterDate, EmojiAfterTitle)),
	)
}

// FormattingOptions controls in-body Markdown formatting.
type FormattingOptions struct {
	TagHandling   string `yaml:"tag_handling" json:"tagHandling"`
	CheckboxStyle string `yaml:"checkbox_style" json:"checkboxStyle"`
}

// Validate validates the formatting options.
func (o FormattingOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.TagHandling, validation.Required,
			validation.In(TagHandlingLinks, TagHandlingHash, TagHandlingAtLinks)),
		validation.Field(&o.CheckboxStyle, validation.Required,
			validation.In(CheckboxMarkdown, CheckboxHyphen, CheckboxBullet, CheckboxNumbered)),
	)
}

// DefaultNamingOptions returns the naming options used when no preset is
// selected. These match the product defaults.
func DefaultNamingOptions() NamingOptions {
	return NamingOptions{
		UseTitle:      true,
		UseBody:       true,
		BodyLength:    30,
		BodyUnit:      BodyUnitCharacters,
		UseDate:       true,
		DateFormat:    "yyyy-MM-dd",
		UseTime:       false,
		TimeFormat:    "HH-mm-ss",
		DatePosition:  DatePositionPrepend,
		UseSerial:     false,
		SerialPadding: "1",
		UseEmoji:      false,
		SelectedEmoji: "💡",
		EmojiPosition: EmojiBeforeDate,
		FillerText:    "Untitled",
	}
}

// DefaultFormattingOptions returns the formatting options used when no
// preset is selected.
func DefaultFormattingOptions() FormattingOptions {
	return FormattingOptions{
		TagHandling:   TagHandlingHash,
		CheckboxStyle: CheckboxMarkdown,
	}
}
