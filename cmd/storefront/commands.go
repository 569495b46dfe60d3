package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/angelmondragon/storefront-client/internal/auth"
	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

func (a *application) runAuth(ctx context.Context, command string, args []string) error {
	switch command {
	case "signin":
		fs := flag.NewFlagSet("signin", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)

		info, err := a.auth.SignIn(ctx, auth.SignInInput{Email: *email, Password: *password})
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s <%s>\n", info.Name, info.Email)
		return nil

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)

		info, err := a.auth.SignUp(ctx, auth.SignUpInput{Name: *name, Email: *email, Password: *password})
		if err != nil {
			return err
		}
		fmt.Printf("account created for %s <%s>\n", info.Name, info.Email)
		return nil

	case "signout":
		if err := a.auth.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil

	case "whoami":
		info, err := a.auth.Current(ctx)
		if err != nil {
			return err
		}
		if info == nil {
			fmt.Println("not signed in")
			return nil
		}
		fmt.Printf("%s <%s> (user %s)\n", info.Name, info.Email, info.UserID)
		return nil

	case "update-profile":
		fs := flag.NewFlagSet("update-profile", flag.ExitOnError)
		name := fs.String("name", "", "new display name")
		password := fs.String("password", "", "new password")
		fs.Parse(args)

		info, err := a.auth.UpdateProfile(ctx, auth.UpdateProfileInput{Name: *name, Password: *password})
		if err != nil {
			return err
		}
		fmt.Printf("profile updated for %s\n", info.Name)
		return nil
	}
	return fmt.Errorf("unknown auth command %q", command)
}

func (a *application) runCatalog(ctx context.Context, command string, args []string) error {
	switch command {
	case "categories":
		categories, err := a.catalog.Categories(ctx)
		if err != nil {
			return err
		}
		for _, category := range categories {
			fmt.Println(category)
		}
		return nil

	case "products":
		fs := flag.NewFlagSet("products", flag.ExitOnError)
		category := fs.String("category", "", "catalog category")
		fs.Parse(args)

		products, err := a.catalog.ProductsByCategory(ctx, *category)
		if err != nil {
			return err
		}
		for _, product := range products {
			fmt.Printf("%d\t%s\t%s\n", product.ID, product.Price.StringFixed(2), product.Title)
		}
		return nil

	case "product":
		fs := flag.NewFlagSet("product", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		fs.Parse(args)

		product, err := a.catalog.Product(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\nprice: %s  rating: %.1f (%d)\n",
			product.Title, product.Description,
			product.Price.StringFixed(2), product.Rating.Rate, product.Rating.Count)
		return nil
	}
	return fmt.Errorf("unknown catalog command %q", command)
}

func (a *application) runCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing cart subcommand")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "show":
		items := a.cart.Items()
		if len(items) == 0 {
			fmt.Println("cart is empty")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%d\t%dx\t%s\t%s\n", item.ProductID, item.Quantity, item.Price.StringFixed(2), item.Title)
		}
		totals := a.cart.Totals()
		fmt.Printf("items: %d  total: %s\n", totals.ItemCount, totals.TotalPrice.StringFixed(2))
		return nil

	case "add":
		fs := flag.NewFlagSet("cart add", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		qty := fs.Int("qty", 1, "quantity to add")
		fs.Parse(rest)

		// line details come from the catalog so the cart carries a display
		// snapshot, not just an id
		product, err := a.catalog.Product(ctx, *id)
		if err != nil {
			return err
		}
		if err := a.cart.AddItem(ctx, cart.Line{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Image:     product.Image,
		}, *qty); err != nil {
			return err
		}
		fmt.Printf("added %dx %s\n", *qty, product.Title)
		return nil

	case "remove":
		fs := flag.NewFlagSet("cart remove", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		fs.Parse(rest)

		if err := a.cart.RemoveItem(ctx, *id); err != nil {
			return err
		}
		fmt.Println("removed")
		return nil

	case "set":
		fs := flag.NewFlagSet("cart set", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		qty := fs.Int("qty", 0, "target quantity, 0 removes")
		fs.Parse(rest)

		if err := a.cart.SetQuantity(ctx, *id, *qty); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil

	case "clear":
		if err := a.cart.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("cart cleared")
		return nil

	case "pull":
		token := a.auth.Token(ctx)
		if token == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to pull the remote cart")
		}
		items, err := a.store.GetCart(ctx, token)
		if err != nil {
			return err
		}
		a.cart.AdoptRemote(ctx, items)
		fmt.Printf("pulled %d items from the remote cart\n", len(items))
		return nil
	}
	return fmt.Errorf("unknown cart command %q", sub)
}

func (a *application) runOrders(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing orders subcommand")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "place":
		view, err := a.orders.Place(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("order %d placed, total %s\n", view.ID, view.TotalPrice.StringFixed(2))
		return nil

	case "list":
		list, err := a.orders.List(ctx)
		if err != nil {
			return err
		}
		printBucket("new", list.New)
		printBucket("paid", list.Paid)
		printBucket("delivered", list.Delivered)
		fmt.Printf("new orders: %d\n", list.NewCount())
		return nil

	case "pay":
		fs := flag.NewFlagSet("orders pay", flag.ExitOnError)
		id := fs.Int64("id", 0, "order id")
		fs.Parse(rest)

		if err := a.orders.Pay(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("order %d paid\n", *id)
		return nil

	case "deliver":
		fs := flag.NewFlagSet("orders deliver", flag.ExitOnError)
		id := fs.Int64("id", 0, "order id")
		fs.Parse(rest)

		if err := a.orders.MarkDelivered(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("order %d delivered\n", *id)
		return nil
	}
	return fmt.Errorf("unknown orders command %q", sub)
}

func printBucket(name string, views []orders.OrderView) {
	if len(views) == 0 {
		return
	}
	fmt.Printf("[%s]\n", name)
	for _, view := range views {
		fmt.Printf("  %d\ttotal %s\t%d items\n", view.ID, view.TotalPrice.StringFixed(2), len(view.Items))
	}
}
