package centralsul

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const searchInputSelector = "input.mat-input-element, input#mat-input-0, input[aria-label='Pesquisar'], mat-form-field input"

const setSearchValueScript = `(function(query) {
	var input = document.querySelector('input.mat-input-element, input#mat-input-0, input[type="search"], input[placeholder*="Pesquisar"]');
	if (!input) {
		return false;
	}
	input.focus();
	input.value = query;
	input.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
})(%s)`

// submitSearch runs the query through the site's search box. Typing into
// the input is tried first, then setting its value by script, and finally
// loading the results URL directly.
func (a *Adapter) submitSearch(ctx context.Context, query string) {
	err := a.typeSearch(ctx, query)
	if err == nil {
		a.logger.Info("[centralsul] Submitted search with Enter key")
		sleep(ctx, a.opts.SearchSettle)
		return
	}
	a.logger.Warn("[centralsul] Standard search approach failed: %v", err)

	ok, err := a.scriptSearch(ctx, query)
	switch {
	case ok:
		a.logger.Info("[centralsul] JavaScript search input succeeded, pressed Enter")
		sleep(ctx, a.opts.SearchSettle)
		return
	case err != nil:
		a.logger.Warn("[centralsul] JavaScript search approach failed: %v", err)
	default:
		a.logger.Warn("[centralsul] JavaScript search approach failed to find input")
	}

	searchURL := baseURL + "?q=" + url.QueryEscape(query)
	a.logger.Info("[centralsul] Using URL approach for search: %s", searchURL)
	if err := a.page.Navigate(ctx, searchURL); err != nil {
		a.logger.Warn("[centralsul] URL search approach failed: %v", err)
	}
}

func (a *Adapter) typeSearch(ctx context.Context, query string) error {
	a.logger.Info("[centralsul] Entering query in search input: %s", query)
	if err := a.page.SendKeys(ctx, searchInputSelector, query); err != nil {
		return err
	}
	return a.page.PressEnter(ctx)
}

func (a *Adapter) scriptSearch(ctx context.Context, query string) (bool, error) {
	a.logger.Info("[centralsul] Trying JavaScript search approach")
	arg, err := json.Marshal(query)
	if err != nil {
		return false, err
	}

	var found bool
	if err := a.page.Evaluate(ctx, fmt.Sprintf(setSearchValueScript, arg), &found); err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := a.page.PressEnter(ctx); err != nil {
		return false, err
	}
	return true, nil
}
