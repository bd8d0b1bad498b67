package sandbox

import "context"

type resolver struct {
	data *Data
}

func (r *resolver) Posts(ctx context.Context) *[]*postResolver {
	posts := r.data.Posts()
	out := make([]*postResolver, 0, len(posts))
	for _, p := range posts {
		out = append(out, &postResolver{data: r.data, post: p})
	}
	return &out
}

func (r *resolver) Author(ctx context.Context, args struct{ ID int32 }) *authorResolver {
	a, ok := r.data.author(args.ID)
	if !ok {
		return nil
	}
	return &authorResolver{data: r.data, author: a}
}

func (r *resolver) UpvotePost(ctx context.Context, args struct{ PostID int32 }) (*postResolver, error) {
	p, err := r.data.upvote(args.PostID)
	if err != nil {
		return nil, err
	}
	return &postResolver{data: r.data, post: p}, nil
}

type authorResolver struct {
	data   *Data
	author Author
}

func (a *authorResolver) ID() int32 { return a.author.ID }

func (a *authorResolver) FirstName() *string { return &a.author.FirstName }

func (a *authorResolver) LastName() *string { return &a.author.LastName }

func (a *authorResolver) Posts() *[]*postResolver {
	posts := a.data.postsBy(a.author.ID)
	out := make([]*postResolver, 0, len(posts))
	for _, p := range posts {
		out = append(out, &postResolver{data: a.data, post: p})
	}
	return &out
}

type postResolver struct {
	data *Data
	post Post
}

func (p *postResolver) ID() int32 { return p.post.ID }

func (p *postResolver) Title() *string { return &p.post.Title }

func (p *postResolver) Votes() *int32 { return &p.post.Votes }

func (p *postResolver) Author() *authorResolver {
	a, ok := p.data.author(p.post.AuthorID)
	if !ok {
		return nil
	}
	return &authorResolver{data: p.data, author: a}
}
