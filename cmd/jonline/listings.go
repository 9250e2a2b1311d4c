package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/app"
	"github.com/spf13/cobra"
)

// truncate shortens content for one-line table cells.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func postsCommand() *cobra.Command {
	var (
		listing int32
		groupID string
		page    int32
	)
	cmd := &cobra.Command{
		Use:           "posts",
		Short:         "List posts across the selected and pinned servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			posts, err := a.LoadPosts(cmd.Context(), api.PostListingType(listing), groupID, page)
			if err != nil && len(posts) == 0 {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "some servers failed: %v\n", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAUTHOR\tTITLE\tREPLIES")
			for _, post := range posts {
				author := ""
				if post.Author != nil {
					author = post.Author.Username
				}
				title := post.Title
				if title == "" {
					title = truncate(post.Content, 48)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", post.ID, author, title, post.ResponseCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if a.HasMorePosts(api.PostListingType(listing), groupID, page) {
				fmt.Printf("more available: --page %d\n", page+1)
			}
			return nil
		}),
	}
	cmd.Flags().Int32Var(&listing, "listing", int32(api.PostListingAllAccessible), "listing type")
	cmd.Flags().StringVar(&groupID, "group", "", "group id for group-scoped listings")
	cmd.Flags().Int32Var(&page, "page", 0, "page number")

	cmd.AddCommand(createPostCommand(), deletePostCommand())
	return cmd
}

func createPostCommand() *cobra.Command {
	var (
		title   string
		link    string
		content string
		replyTo string
	)
	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a post on the selected server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			post, err := a.CreatePost(cmd.Context(), &api.Post{
				Title:         title,
				Link:          link,
				Content:       content,
				ReplyToPostID: replyTo,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created post %s\n", post.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "post title")
	cmd.Flags().StringVar(&link, "link", "", "post link")
	cmd.Flags().StringVar(&content, "content", "", "post body")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "id of the post to reply to")
	return cmd
}

func deletePostCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "delete [post-id]",
		Short:         "Delete a post on its origin server",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			return a.DeletePost(cmd.Context(), args[0])
		}),
	}
}

func eventsCommand() *cobra.Command {
	var (
		listing int32
		groupID string
		page    int32
	)
	cmd := &cobra.Command{
		Use:           "events",
		Short:         "List events across the selected and pinned servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			events, err := a.LoadEvents(cmd.Context(), api.EventListingType(listing), groupID, page)
			if err != nil && len(events) == 0 {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "some servers failed: %v\n", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTARTS")
			for _, event := range events {
				title := ""
				if event.Post != nil {
					title = event.Post.Title
				}
				starts := ""
				if len(event.Instances) > 0 && event.Instances[0].StartsAt != nil {
					starts = event.Instances[0].StartsAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", event.ID, title, starts)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().Int32Var(&listing, "listing", int32(api.EventListingAllAccessible), "listing type")
	cmd.Flags().StringVar(&groupID, "group", "", "group id for group-scoped listings")
	cmd.Flags().Int32Var(&page, "page", 0, "page number")
	return cmd
}

func usersCommand() *cobra.Command {
	var (
		listing int32
		page    int32
	)
	cmd := &cobra.Command{
		Use:           "users",
		Short:         "List users across the selected and pinned servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			users, err := a.LoadUsers(cmd.Context(), api.UserListingType(listing), page)
			if err != nil && len(users) == 0 {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "some servers failed: %v\n", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tFOLLOWERS")
			for _, user := range users {
				fmt.Fprintf(w, "%s\t%s\t%d\n", user.ID, user.Username, user.FollowerCount)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().Int32Var(&listing, "listing", int32(api.UserListingEveryone), "listing type")
	cmd.Flags().Int32Var(&page, "page", 0, "page number")
	return cmd
}

func groupsCommand() *cobra.Command {
	var (
		listing int32
		page    int32
	)
	cmd := &cobra.Command{
		Use:           "groups",
		Short:         "List groups across the selected and pinned servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			groups, err := a.LoadGroups(cmd.Context(), api.GroupListingType(listing), page)
			if err != nil && len(groups) == 0 {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "some servers failed: %v\n", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMEMBERS\tPOSTS")
			for _, group := range groups {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", group.ID, group.Name, group.MemberCount, group.PostCount)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().Int32Var(&listing, "listing", int32(api.GroupListingAllAccessible), "listing type")
	cmd.Flags().Int32Var(&page, "page", 0, "page number")
	return cmd
}
