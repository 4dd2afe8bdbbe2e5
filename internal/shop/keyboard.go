// Package shop builds the inline keyboards of the shop listing.
package shop

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Callback data prefixes
const (
	CallbackPrefix   = "shop_"      // every shop callback
	CallbackShopPrev = "shop_prev:" // shop_prev:<current page>
	CallbackShopNext = "shop_next:" // shop_next:<current page>
	CallbackShopNoop = "shop_noop"  // page indicator
)

// BuildPager creates the prev / page / next row under a shop page.
// Buttons that would leave the valid range are replaced by the no-op indicator.
func BuildPager(page, pages int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	prev := markup.Data("·", CallbackShopNoop)
	if page > 1 {
		prev = markup.Data("◀️ Prev", CallbackShopPrev+strconv.Itoa(page))
	}
	next := markup.Data("·", CallbackShopNoop)
	if page < pages {
		next = markup.Data("Next ▶️", CallbackShopNext+strconv.Itoa(page))
	}
	indicator := markup.Data(fmt.Sprintf("%d/%d", page, pages), CallbackShopNoop)

	markup.Inline(markup.Row(prev, indicator, next))
	return markup
}

// TargetPage resolves callback data to the page it asks for.
// It reports false for data that is not a page turn.
func TargetPage(data string) (int, bool) {
	data = strings.TrimPrefix(data, "\f")

	var delta int
	var rest string
	switch {
	case strings.HasPrefix(data, CallbackShopPrev):
		delta, rest = -1, strings.TrimPrefix(data, CallbackShopPrev)
	case strings.HasPrefix(data, CallbackShopNext):
		delta, rest = 1, strings.TrimPrefix(data, CallbackShopNext)
	default:
		return 0, false
	}

	current, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return current + delta, true
}
