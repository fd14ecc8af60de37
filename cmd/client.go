package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/catalog"
	"github.com/markb/shopdash/internal/client"
	"github.com/markb/shopdash/internal/log"
	"github.com/markb/shopdash/internal/prompt"
	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

var (
	flagServer     string
	flagSessionDir string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new admin through the API",
	Long: `Register a new admin through the API.

You will be prompted for a username, email address and password. Registering
does not log you in.`,
	RunE: runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession()
		if err != nil {
			return err
		}
		if err := session.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, api *client.Client) error {
			me, err := api.Me(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s> (id %d)\n", me.Username, me.Email, me.ID)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd, logoutCmd, whoamiCmd, productsCmd, categoriesCmd} {
		rootCmd.AddCommand(c)
		c.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:5000", "Shopdash server URL")
		c.PersistentFlags().StringVar(&flagSessionDir, "session-dir", "", "Directory for the saved session (default: user config dir)")
	}
}

func newAPI() *client.Client {
	return client.New(flagServer, nil)
}

func openSession() (*client.Session, error) {
	dir := flagSessionDir
	if dir == "" {
		var err error
		if dir, err = client.DefaultStorageDir(); err != nil {
			return nil, fmt.Errorf("failed to locate session directory: %w", err)
		}
	}
	return client.NewSession(client.NewFileStorage(dir)), nil
}

// withSession runs fn with a client carrying the saved token. A token the
// server rejects is dropped from the session.
func withSession(fn func(ctx context.Context, api *client.Client) error) error {
	session, err := openSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err = session.ProtectedRoute(func(_ admin.PublicView, token string) error {
		api := newAPI()
		api.SetToken(token)
		return fn(ctx, api)
	})
	if errors.Is(err, client.ErrLoginRequired) {
		return fmt.Errorf("not logged in; run: shopdash login")
	}
	if client.IsUnauthorized(err) {
		expireSession(session)
		return fmt.Errorf("session expired; run: shopdash login")
	}
	return err
}

// expireSession drops a session whose token the server rejected.
func expireSession(session *client.Session) {
	if err := session.Logout(); err != nil {
		log.Warn("failed to remove rejected session", "error", err)
	}
}

func runRegister(cmd *cobra.Command, args []string) error {
	reader := prompt.NewReader()
	username, err := reader.Required("Username")
	if err != nil {
		return err
	}
	email, err := reader.Email("Email")
	if err != nil {
		return err
	}
	password, err := reader.Password("Password")
	if err != nil {
		return err
	}
	if err := reader.ConfirmPassword("Confirm password", password); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a, err := newAPI().Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Admin registered: %s <%s> (id %d)\n", a.Username, a.Email, a.ID)
	fmt.Println("Log in with: shopdash login")
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := prompt.NewReader()
	email, err := reader.Email("Email")
	if err != nil {
		return err
	}
	password, err := reader.Password("Password")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	res, err := newAPI().Login(ctx, email, password)
	if err != nil {
		return err
	}

	session, err := openSession()
	if err != nil {
		return err
	}
	if err := session.Login(res.Admin, res.Token); err != nil {
		return err
	}
	fmt.Printf("✓ Logged in as %s\n", res.Admin.Username)
	return nil
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse and manage products",
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Browse and manage categories",
}

var listFlags struct {
	page     int
	limit    int
	category int64
}

type productFlagValues struct {
	name        string
	description string
	price       float64
	stock       int
	imageURL    string
	categories  []int64

	clearCategories bool
}

var productFlags productFlagValues

func init() {
	productsList := &cobra.Command{
		Use:   "list",
		Short: "List products, one page at a time",
		Args:  cobra.NoArgs,
		RunE:  runProductsList,
	}
	productsList.Flags().IntVar(&listFlags.page, "page", catalog.DefaultPage, "Page number")
	productsList.Flags().IntVar(&listFlags.limit, "limit", catalog.DefaultLimit, "Products per page")
	productsList.Flags().Int64Var(&listFlags.category, "category", 0, "Only products in this category")

	productsGet := &cobra.Command{
		Use:   "get ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE:  runProductsGet,
	}

	productsCreate := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE:  runProductsCreate,
	}
	addProductFlags(productsCreate)
	_ = productsCreate.MarkFlagRequired("name")
	_ = productsCreate.MarkFlagRequired("price")
	_ = productsCreate.MarkFlagRequired("stock")

	productsUpdate := &cobra.Command{
		Use:   "update ID",
		Short: "Update the given fields of a product",
		Long: `Update a product. Only the flags you pass are changed; --category
replaces the category set and --clear-categories removes it.`,
		Args: cobra.ExactArgs(1),
		RunE: runProductsUpdate,
	}
	addProductFlags(productsUpdate)
	productsUpdate.Flags().BoolVar(&productFlags.clearCategories, "clear-categories", false, "Remove the product from every category")
	productsUpdate.MarkFlagsMutuallyExclusive("category", "clear-categories")

	productsDelete := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(func(ctx context.Context, api *client.Client) error {
				if err := api.DeleteProduct(ctx, id); err != nil {
					return err
				}
				fmt.Printf("✓ Product %d deleted\n", id)
				return nil
			})
		},
	}

	productsCmd.AddCommand(productsList, productsGet, productsCreate, productsUpdate, productsDelete)

	categoriesCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories",
			Args:  cobra.NoArgs,
			RunE:  runCategoriesList,
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(func(ctx context.Context, api *client.Client) error {
					c, err := api.CreateCategory(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Printf("✓ Category created: %s (id %d)\n", c.Name, c.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "update ID NAME",
			Short: "Rename a category",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(func(ctx context.Context, api *client.Client) error {
					c, err := api.UpdateCategory(ctx, id, args[1])
					if err != nil {
						return err
					}
					fmt.Printf("✓ Category %d renamed to %s\n", c.ID, c.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a category; its products stay",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withSession(func(ctx context.Context, api *client.Client) error {
					if err := api.DeleteCategory(ctx, id); err != nil {
						return err
					}
					fmt.Printf("✓ Category %d deleted\n", id)
					return nil
				})
			},
		},
	)
}

func addProductFlags(c *cobra.Command) {
	c.Flags().StringVar(&productFlags.name, "name", "", "Product name")
	c.Flags().StringVar(&productFlags.description, "description", "", "Description")
	c.Flags().Float64Var(&productFlags.price, "price", 0, "Price, greater than zero")
	c.Flags().IntVar(&productFlags.stock, "stock", 0, "Units in stock")
	c.Flags().StringVar(&productFlags.imageURL, "image-url", "", "Image URL")
	c.Flags().Int64SliceVar(&productFlags.categories, "category", nil, "Category ids (repeat or comma-separate)")
}

// changedFields builds a request body from the flags given on the command
// line.
func changedFields(c *cobra.Command) client.ProductFields {
	var f client.ProductFields
	flags := c.Flags()
	if flags.Changed("name") {
		f.Name = &productFlags.name
	}
	if flags.Changed("description") {
		f.Description = &productFlags.description
	}
	if flags.Changed("price") {
		f.Price = &productFlags.price
	}
	if flags.Changed("stock") {
		f.StockQuantity = &productFlags.stock
	}
	if flags.Changed("image-url") {
		f.ImageURL = &productFlags.imageURL
	}
	if flags.Changed("category") {
		ids := append([]int64{}, productFlags.categories...)
		f.CategoryIDs = &ids
	}
	if productFlags.clearCategories {
		f.CategoryIDs = &[]int64{}
	}
	return f
}

func runProductsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	page, err := newAPI().ListProducts(ctx, listFlags.page, listFlags.limit, listFlags.category)
	if err != nil {
		return err
	}

	if len(page.Data) == 0 {
		fmt.Println("No products found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORIES")
	for _, p := range page.Data {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%s\n", p.ID, p.Name, p.Price, p.StockQuantity, categoryNames(p))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nPage %d of %d (%d products)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func runProductsGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	p, err := newAPI().GetProduct(ctx, id)
	if err != nil {
		return err
	}
	printProduct(p)
	return nil
}

func runProductsCreate(cmd *cobra.Command, args []string) error {
	fields := changedFields(cmd)
	return withSession(func(ctx context.Context, api *client.Client) error {
		p, err := api.CreateProduct(ctx, fields)
		if err != nil {
			return err
		}
		fmt.Println("✓ Product created")
		printProduct(p)
		return nil
	})
}

func runProductsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fields := changedFields(cmd)
	return withSession(func(ctx context.Context, api *client.Client) error {
		p, err := api.UpdateProduct(ctx, id, fields)
		if err != nil {
			return err
		}
		fmt.Println("✓ Product updated")
		printProduct(p)
		return nil
	})
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	categories, err := newAPI().ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		fmt.Println("No categories found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, c := range categories {
		fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
	}
	return w.Flush()
}

func printProduct(p *catalog.Product) {
	fmt.Printf("  ID:          %d\n", p.ID)
	fmt.Printf("  Name:        %s\n", p.Name)
	if p.Description != nil {
		fmt.Printf("  Description: %s\n", *p.Description)
	}
	fmt.Printf("  Price:       %.2f\n", p.Price)
	fmt.Printf("  Stock:       %d\n", p.StockQuantity)
	if p.ImageURL != nil {
		fmt.Printf("  Image:       %s\n", *p.ImageURL)
	}
	fmt.Printf("  Categories:  %s\n", categoryNames(*p))
	fmt.Printf("  Created:     %s\n", p.CreatedAt.Format(time.RFC3339))
}

func categoryNames(p catalog.Product) string {
	if len(p.Categories) == 0 {
		return "-"
	}
	names := make([]string, 0, len(p.Categories))
	for _, pc := range p.Categories {
		names = append(names, pc.Category.Name)
	}
	return strings.Join(names, ", ")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
