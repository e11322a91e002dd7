package parser

import (
	"strconv"
	"strings"

	"litedb/pkg/dberr"
	"litedb/pkg/types"
)

// Parser consumes tokens from a Lexer and produces a Statement. It is
// a recursive-descent parser with a Pratt expression core.
type Parser struct {
	lexer *Lexer
	tok   Token
}

// Parse parses a single SQL statement, allowing one trailing
// semicolon.
func Parse(sql string) (Statement, error) {
	p := &Parser{lexer: NewLexer(sql)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var stmt Statement
	var err error
	switch p.tok.Type {
	case SELECT:
		stmt, err = p.parseSelect()
	case CREATE:
		stmt, err = p.parseCreate()
	case INSERT:
		stmt, err = p.parseInsert()
	case EOF:
		return nil, dberr.New(dberr.Parse, "empty statement")
	default:
		return nil, p.unexpected("SELECT, CREATE, or INSERT")
	}
	if err != nil {
		return nil, err
	}

	if p.tok.Type == SEMICOLON {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Type != EOF {
		return nil, p.unexpected("end of statement")
	}

	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	if p.tok.Type != tt {
		return Token{}, p.unexpected(what)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *Parser) unexpected(expected string) error {
	return dberr.Newf(dberr.Parse, "expected %s, found %q", expected, p.tok).
		WithDetail("at position %d", p.tok.Position)
}

// parseTableName parses [db.]name and applies the default database.
func (p *Parser) parseTableName(defaultDB string) (db, table string, err error) {
	first := p.tok
	if first.Type != IDENT && first.Type != TEMP {
		return "", "", p.unexpected("table name")
	}
	if err := p.advance(); err != nil {
		return "", "", err
	}

	if p.tok.Type != DOT {
		if first.Type != IDENT {
			return "", "", p.unexpected("'.' after database name")
		}
		return defaultDB, first.Value, nil
	}
	if err := p.advance(); err != nil {
		return "", "", err
	}
	second, err := p.expect(IDENT, "table name after database qualifier")
	if err != nil {
		return "", "", err
	}

	db = strings.ToLower(first.Value)
	if db != "main" && db != "temp" {
		return "", "", dberr.Newf(dberr.Parse, "unknown database %q, expected main or temp", first.Value)
	}
	return db, second.Value, nil
}

// parseCreate parses CREATE [TEMP] TABLE [db.]name (col type, ...) [STRICT].
func (p *Parser) parseCreate() (Statement, error) {
	if err := p.advance(); err != nil { // CREATE
		return nil, err
	}

	defaultDB := "main"
	if p.tok.Type == TEMP {
		defaultDB = "temp"
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TABLE, "TABLE"); err != nil {
		return nil, err
	}

	db, table, err := p.parseTableName(defaultDB)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(LPAREN, "("); err != nil {
		return nil, err
	}

	var columns []ColumnDef
	for {
		name, err := p.expect(IDENT, "column name")
		if err != nil {
			return nil, err
		}
		typeName, err := p.expect(IDENT, "column type")
		if err != nil {
			return nil, err
		}
		colType, err := types.ParseType(typeName.Value)
		if err != nil {
			return nil, err
		}
		columns = append(columns, ColumnDef{Name: name.Value, Type: colType})

		if p.tok.Type != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(RPAREN, ")"); err != nil {
		return nil, err
	}

	strict := false
	if p.tok.Type == STRICT {
		strict = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return &CreateTableStatement{Database: db, Table: table, Strict: strict, Columns: columns}, nil
}

// parseInsert parses INSERT INTO [db.]name VALUES (expr, ...), (...).
func (p *Parser) parseInsert() (Statement, error) {
	if err := p.advance(); err != nil { // INSERT
		return nil, err
	}
	if _, err := p.expect(INTO, "INTO"); err != nil {
		return nil, err
	}

	db, table, err := p.parseTableName("main")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(VALUES, "VALUES"); err != nil {
		return nil, err
	}

	var rows [][]Expr
	for {
		if _, err := p.expect(LPAREN, "("); err != nil {
			return nil, err
		}

		var row []Expr
		for {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			row = append(row, e)

			if p.tok.Type != COMMA {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}

		if _, err := p.expect(RPAREN, ")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)

		if p.tok.Type != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return &InsertStatement{Database: db, Table: table, Rows: rows}, nil
}

// parseSelect parses SELECT items [FROM [db.]name] [WHERE expr].
func (p *Parser) parseSelect() (Statement, error) {
	if err := p.advance(); err != nil { // SELECT
		return nil, err
	}

	var items []SelectItem
	for {
		if p.tok.Type == STAR {
			items = append(items, SelectItem{Star: true})
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			item := SelectItem{Expr: e}
			if p.tok.Type == AS {
				if err := p.advance(); err != nil {
					return nil, err
				}
				alias, err := p.expect(IDENT, "alias after AS")
				if err != nil {
					return nil, err
				}
				item.Alias = alias.Value
			}
			items = append(items, item)
		}

		if p.tok.Type != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	stmt := &SelectStatement{Items: items}

	if p.tok.Type == FROM {
		if err := p.advance(); err != nil {
			return nil, err
		}
		db, table, err := p.parseTableName("main")
		if err != nil {
			return nil, err
		}
		stmt.From = &TableRef{Database: db, Table: table}
	}

	if p.tok.Type == WHERE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

// Binding powers for the Pratt expression parser.
const (
	precComparison = 1
	precAdditive   = 2
	precFactor     = 3
)

func binaryPrecedence(tt TokenType) (BinOp, int, bool) {
	switch tt {
	case EQ:
		return OpEq, precComparison, true
	case NE:
		return OpNe, precComparison, true
	case LT:
		return OpLt, precComparison, true
	case LE:
		return OpLe, precComparison, true
	case GT:
		return OpGt, precComparison, true
	case GE:
		return OpGe, precComparison, true
	case PLUS:
		return OpAdd, precAdditive, true
	case MINUS:
		return OpSub, precAdditive, true
	case STAR:
		return OpMul, precFactor, true
	case SLASH:
		return OpDiv, precFactor, true
	default:
		return 0, 0, false
	}
}

// parseExpr parses an expression whose operators all bind at least as
// tightly as minPrec, combining left-associatively.
func (p *Parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		op, prec, ok := binaryPrecedence(p.tok.Type)
		if !ok || prec < minPrec {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.tok.Type {
	case NUMBER:
		return p.parseNumber()
	case STRING:
		v := types.NewText(p.tok.Value)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ConstExpr{Value: v}, nil
	case NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ConstExpr{Value: types.NewNull()}, nil
	case TRUE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ConstExpr{Value: types.NewBool(true)}, nil
	case FALSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ConstExpr{Value: types.NewBool(false)}, nil
	case IDENT:
		name := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ColumnRef{Name: name}, nil
	case MINUS:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: OpNeg, Operand: operand}, nil
	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.unexpected("an expression")
	}
}

func (p *Parser) parseNumber() (Expr, error) {
	text := p.tok.Value
	if err := p.advance(); err != nil {
		return nil, err
	}

	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, dberr.Newf(dberr.Parse, "malformed number %q", text)
		}
		return ConstExpr{Value: types.NewReal(f)}, nil
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, dberr.Newf(dberr.Parse, "integer %q out of range", text)
	}
	return ConstExpr{Value: types.NewInt(i)}, nil
}
