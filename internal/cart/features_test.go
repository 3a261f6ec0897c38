package cart_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"pos-backend/internal/cart"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/shopspring/decimal"
)

var opts = godog.Options{
	Output:      colors.Colored(os.Stdout),
	Format:      "progress",
	Paths:       []string{"../../features"},
	Randomize:   0,
	Concurrency: 1,
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options:             &opts,
	}

	if suite.Run() != 0 {
		t.Fail()
	}
}

type cartTestContext struct {
	store      *cart.Store
	lineIDs    map[uint]string
	paymentErr error
}

func (c *cartTestContext) reset() {
	c.store = nil
	c.lineIDs = map[uint]string{}
	c.paymentErr = nil
}

func product(id int, price string, serialized bool) cart.Product {
	return cart.Product{
		ID:           uint(id),
		Name:         fmt.Sprintf("Ürün %d", id),
		Prices:       map[int]decimal.Decimal{cart.DefaultPriceList: decimal.RequireFromString(price)},
		VATRate:      decimal.NewFromInt(20),
		IsSerialized: serialized,
	}
}

func (c *cartTestContext) aRegisterWithTabs(n int) error {
	c.store = cart.NewStore(n)
	return nil
}

func (c *cartTestContext) rememberLast(tab int, productID uint) error {
	cur, err := c.store.Cart(tab)
	if err != nil {
		return err
	}
	for _, l := range cur.Lines {
		if l.ProductID == productID {
			c.lineIDs[productID] = l.ID
		}
	}
	return nil
}

func (c *cartTestContext) iAddOfProductPricedToTab(qty, productID int, price string, tab int) error {
	if _, err := c.store.AddLine(tab, product(productID, price, false), decimal.NewFromInt(int64(qty))); err != nil {
		return err
	}
	return c.rememberLast(tab, uint(productID))
}

func (c *cartTestContext) iAddSerializedProduct(productID int, price, serial string, tab int) error {
	if _, err := c.store.AddSerializedLine(tab, product(productID, price, true), 1, serial); err != nil {
		return err
	}
	return c.rememberLast(tab, uint(productID))
}

func (c *cartTestContext) iSetTheDiscountOfProductInTabTo(productID, tab int, amount string) error {
	_, err := c.store.SetDiscount(tab, c.lineIDs[uint(productID)], decimal.RequireFromString(amount))
	return err
}

func (c *cartTestContext) iSetTheQuantityOfProductInTabTo(productID, tab int, qty string) error {
	_, _, err := c.store.SetQuantity(tab, c.lineIDs[uint(productID)], decimal.RequireFromString(qty))
	return err
}

func (c *cartTestContext) iRemoveProductFromTab(productID, tab int) error {
	_, _, err := c.store.RemoveLine(tab, c.lineIDs[uint(productID)])
	return err
}

func (c *cartTestContext) iClearTab(tab int) error {
	_, _, err := c.store.ClearCart(tab)
	return err
}

func (c *cartTestContext) customerIsBoundToTab(name string, tab int) error {
	_, err := c.store.SelectCustomer(tab, cart.Customer{ID: 1, Name: name, CreditLimit: decimal.NewFromInt(1000)})
	return err
}

func (c *cartTestContext) iValidateASplitPayment(cash, card, credit string, tab int) error {
	cur, err := c.store.Cart(tab)
	if err != nil {
		return err
	}
	_, bound, err := c.store.Customer(tab)
	if err != nil {
		return err
	}
	p := cart.Payment{
		Type: cart.PaymentSplit,
		Split: cart.Split{
			Cash:   decimal.RequireFromString(cash),
			Card:   decimal.RequireFromString(card),
			Credit: decimal.RequireFromString(credit),
		},
	}
	c.paymentErr = cart.ValidatePayment(p, cur.Net, bound)
	return nil
}

func (c *cartTestContext) tabTotalsAre(tab int, gross, discount, net string) error {
	cur, err := c.store.Cart(tab)
	if err != nil {
		return err
	}
	if !cur.Gross.Equal(decimal.RequireFromString(gross)) ||
		!cur.DiscountTotal.Equal(decimal.RequireFromString(discount)) ||
		!cur.Net.Equal(decimal.RequireFromString(net)) {
		return fmt.Errorf("totals = %s/%s/%s, want %s/%s/%s", cur.Gross, cur.DiscountTotal, cur.Net, gross, discount, net)
	}
	return nil
}

func (c *cartTestContext) thePaymentIsAccepted() error {
	if c.paymentErr != nil {
		return fmt.Errorf("expected payment to pass, got %v", c.paymentErr)
	}
	return nil
}

func (c *cartTestContext) thePaymentIsRejectedWith(code string) error {
	var verr *cart.ValidationError
	if !errors.As(c.paymentErr, &verr) {
		return fmt.Errorf("expected validation error, got %v", c.paymentErr)
	}
	if string(verr.Code) != code {
		return fmt.Errorf("code = %s, want %s", verr.Code, code)
	}
	return nil
}

func (c *cartTestContext) productInTabHasQuantity(productID, tab int, qty string) error {
	cur, err := c.store.Cart(tab)
	if err != nil {
		return err
	}
	l, ok := cur.Line(c.lineIDs[uint(productID)])
	if !ok {
		return fmt.Errorf("product %d not in tab %d", productID, tab)
	}
	if !l.Quantity.Equal(decimal.RequireFromString(qty)) {
		return fmt.Errorf("quantity = %s, want %s", l.Quantity, qty)
	}
	return nil
}

func (c *cartTestContext) tabIsBoundToCustomer(tab int, name string) error {
	b, ok, err := c.store.Customer(tab)
	if err != nil {
		return err
	}
	if !ok || b.Customer.Name != name {
		return fmt.Errorf("tab %d bound to %+v, want %s", tab, b.Customer, name)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a register with (\d+) tabs$`, tc.aRegisterWithTabs)
	ctx.Step(`^I add (\d+) of product (\d+) priced ([\d.]+) to tab (\d+)$`, tc.iAddOfProductPricedToTab)
	ctx.Step(`^I add serialized product (\d+) priced ([\d.]+) with serial "([^"]*)" to tab (\d+)$`, tc.iAddSerializedProduct)
	ctx.Step(`^I set the discount of product (\d+) in tab (\d+) to (-?[\d.]+)$`, tc.iSetTheDiscountOfProductInTabTo)
	ctx.Step(`^I set the quantity of product (\d+) in tab (\d+) to (-?[\d.]+)$`, tc.iSetTheQuantityOfProductInTabTo)
	ctx.Step(`^I remove product (\d+) from tab (\d+)$`, tc.iRemoveProductFromTab)
	ctx.Step(`^I clear tab (\d+)$`, tc.iClearTab)
	ctx.Step(`^customer "([^"]*)" is bound to tab (\d+)$`, tc.customerIsBoundToTab)
	ctx.Step(`^I validate a split payment of cash ([\d.]+), card ([\d.]+) and credit ([\d.]+) for tab (\d+)$`, tc.iValidateASplitPayment)
	ctx.Step(`^tab (\d+) totals are gross ([\d.]+), discount ([\d.]+) and net (-?[\d.]+)$`, tc.tabTotalsAre)
	ctx.Step(`^the payment is accepted$`, tc.thePaymentIsAccepted)
	ctx.Step(`^the payment is rejected with "([^"]*)"$`, tc.thePaymentIsRejectedWith)
	ctx.Step(`^product (\d+) in tab (\d+) has quantity ([\d.]+)$`, tc.productInTabHasQuantity)
	ctx.Step(`^tab (\d+) is bound to customer "([^"]*)"$`, tc.tabIsBoundToCustomer)
}
